// Package classifier provides the binary churn models and a registry that
// builds them by name.
//
// Models work on row-major feature matrices. Classifier binds a Model to the
// feature columns it was fitted on so callers can pass datasets directly.
package classifier

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/errors"
	"github.com/Dawood-ML/uv-project-management/pkg/json"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
)

// Model kinds known to the default registry.
const (
	KindRandomForest       = "random_forest"
	KindGradientBoosting   = "gradient_boosting"
	KindLogisticRegression = "logistic_regression"
)

// Model is a binary classifier over dense feature rows.
type Model interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) ([]int, error)
	PredictProbability(X [][]float64) ([]float64, error)
}

// Factory builds an unfitted model from hyperparameters.
type Factory func(p Params) (Model, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a model factory under kind.
func Register(kind string, f Factory) error {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[kind]; exists {
		return errors.New(errors.ErrorTypeConflict, "model kind already registered").
			WithDetail("model_type", kind)
	}
	factories[kind] = f
	return nil
}

// Kinds returns the registered model kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func factory(kind string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()

	f, ok := factories[kind]
	if !ok {
		return nil, errors.Configuration("unknown model type").
			WithDetail("model_type", kind).
			WithDetail("supported", kindsLocked())
	}
	return f, nil
}

func kindsLocked() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func init() {
	_ = Register(KindRandomForest, newRandomForest)
	_ = Register(KindGradientBoosting, newGradientBoosting)
	_ = Register(KindLogisticRegression, newLogisticRegression)
}

// Classifier is a Model bound to named feature columns.
type Classifier struct {
	kind     string
	params   Params
	model    Model
	features []string
	logger   *zap.Logger
}

// New builds an unfitted classifier of the given kind. Unknown kinds and
// unknown hyperparameters return a config error.
func New(kind string, params Params, log *zap.Logger) (*Classifier, error) {
	f, err := factory(kind)
	if err != nil {
		return nil, err
	}
	m, err := f(params)
	if err != nil {
		return nil, err
	}
	return &Classifier{
		kind:   kind,
		params: params.clone(),
		model:  m,
		logger: logger.OrGlobal(log).With(zap.String("model_type", kind)),
	}, nil
}

// Kind returns the model kind.
func (c *Classifier) Kind() string { return c.kind }

// Params returns a copy of the hyperparameters.
func (c *Classifier) Params() Params { return c.params.clone() }

// Features returns the feature columns in fit order, or nil before Fit.
func (c *Classifier) Features() []string { return append([]string(nil), c.features...) }

// Model returns the underlying model.
func (c *Classifier) Model() Model { return c.model }

// Fit trains on every column of X, which must all be numeric, with binary
// labels y.
func (c *Classifier) Fit(X *dataset.Dataset, y []int) error {
	if X.Rows() == 0 {
		return errors.New(errors.ErrorTypeData, "cannot fit on an empty dataset")
	}
	if len(y) != X.Rows() {
		return errors.Newf(errors.ErrorTypeData, "got %d labels for %d rows", len(y), X.Rows())
	}
	for i, l := range y {
		if l != 0 && l != 1 {
			return errors.Newf(errors.ErrorTypeData, "label %d at row %d is not binary", l, i)
		}
	}

	var categorical []string
	for _, f := range X.Schema() {
		if f.Kind != dataset.Numeric {
			categorical = append(categorical, f.Name)
		}
	}
	if len(categorical) > 0 {
		return errors.New(errors.ErrorTypeData, "features must be numeric").
			WithDetail("columns", categorical)
	}

	features := X.Names()
	matrix, err := X.Matrix(features)
	if err != nil {
		return err
	}

	c.logger.Info("training model", zap.Int("rows", X.Rows()), zap.Int("features", len(features)))
	start := time.Now()
	if err := c.model.Fit(matrix, y); err != nil {
		return err
	}
	c.features = features
	c.logger.Info("training complete", zap.Duration("duration", time.Since(start)))
	return nil
}

// Predict returns a class label per row of batch.
func (c *Classifier) Predict(batch *dataset.Dataset) ([]int, error) {
	X, err := c.matrix(batch)
	if err != nil {
		return nil, err
	}
	return c.model.Predict(X)
}

// PredictProbability returns the positive-class probability per row of batch.
func (c *Classifier) PredictProbability(batch *dataset.Dataset) ([]float64, error) {
	X, err := c.matrix(batch)
	if err != nil {
		return nil, err
	}
	return c.model.PredictProbability(X)
}

func (c *Classifier) matrix(batch *dataset.Dataset) ([][]float64, error) {
	if c.features == nil {
		return nil, errors.NotFitted("model has not been fitted")
	}
	known := make(map[string]struct{}, len(c.features))
	var missing, extra []string
	for _, f := range c.features {
		known[f] = struct{}{}
		if !batch.Has(f) {
			missing = append(missing, f)
		}
	}
	for _, n := range batch.Names() {
		if _, ok := known[n]; !ok {
			extra = append(extra, n)
		}
	}
	if len(missing)+len(extra) > 0 {
		return nil, errors.SchemaMismatch(missing, extra, nil)
	}
	return batch.Matrix(c.features)
}

// Snapshot is the serializable form of a fitted Classifier.
type Snapshot struct {
	Kind     string          `json:"kind"`
	Params   Params          `json:"params,omitempty"`
	Features []string        `json:"features"`
	Model    json.RawMessage `json:"model"`
}

// Snapshot captures the fitted state.
func (c *Classifier) Snapshot() (*Snapshot, error) {
	if c.features == nil {
		return nil, errors.NotFitted("model has not been fitted")
	}
	raw, err := json.Marshal(c.model)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode model")
	}
	return &Snapshot{
		Kind:     c.kind,
		Params:   c.params.clone(),
		Features: c.Features(),
		Model:    raw,
	}, nil
}

// Restore rebuilds a fitted Classifier from a snapshot.
func Restore(s *Snapshot, log *zap.Logger) (*Classifier, error) {
	c, err := New(s.Kind, s.Params, log)
	if err != nil {
		return nil, err
	}
	if len(s.Features) == 0 {
		return nil, errors.New(errors.ErrorTypeData, "snapshot has no features")
	}
	if err := json.Unmarshal(s.Model, c.model); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode model").
			WithDetail("model_type", s.Kind)
	}
	c.features = append([]string(nil), s.Features...)
	return c, nil
}
