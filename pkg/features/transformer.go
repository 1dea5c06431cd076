// Package features standardizes numeric columns with statistics learned from
// exactly one fitting dataset.
//
// A Transformer is fitted once with FitTransform on training data and then
// applies the same frozen statistics with Transform to any later dataset, so
// evaluation and inference data never influence the scaling.
//
// # Lifecycle
//
// unfit -> fitted -> fitted. FitTransform on an already fitted Transformer
// replaces the statistics; nothing is accumulated across calls. The
// replacement is logged at warn level, and WithRejectRefit turns it into a
// conflict error for pipelines that expect one fit per instance.
//
// # Concurrency
//
// A Transformer is not safe for concurrent FitTransform calls. Transform only
// reads the fitted statistics and is safe to call concurrently once fitting
// has finished.
package features

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/errors"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
)

// ColumnStatistics holds the mean and sample standard deviation of one
// numeric column.
type ColumnStatistics struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger sets the logger. The default is the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Transformer) { t.logger = l }
}

// WithRejectRefit makes FitTransform fail on an already fitted Transformer.
func WithRejectRefit() Option {
	return func(t *Transformer) { t.rejectRefit = true }
}

// Transformer standardizes numeric columns as (x - mean) / std.
type Transformer struct {
	stats       []ColumnStatistics
	byName      map[string]int
	schema      []dataset.Field
	fitted      bool
	rejectRefit bool
	logger      *zap.Logger
}

// New returns an unfitted Transformer.
func New(opts ...Option) *Transformer {
	t := &Transformer{}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logger.OrGlobal(t.logger).With(zap.String("component", "feature_transformer"))
	return t
}

// FitTransform computes mean and sample standard deviation (ddof=1) for
// every numeric column of d, stores them, and returns d standardized.
// Non-numeric columns pass through unchanged; row count and order are kept.
//
// It fails without changing state when a numeric column has fewer than two
// rows, contains missing or infinite values, or is constant.
func (t *Transformer) FitTransform(d *dataset.Dataset) (*dataset.Dataset, error) {
	if t.fitted && t.rejectRefit {
		return nil, errors.New(errors.ErrorTypeConflict, "transformer is already fitted")
	}

	names := d.NumericNames()
	stats := make([]ColumnStatistics, 0, len(names))
	var invalid, constant []string
	for _, name := range names {
		c, _ := d.Column(name)
		if c.HasMissing() || c.HasInf() {
			invalid = append(invalid, name)
			continue
		}
		if len(c.Numbers) < 2 {
			return nil, errors.Newf(errors.ErrorTypeData,
				"cannot fit column %q on %d rows, need at least 2", name, len(c.Numbers)).
				WithDetail("column", name)
		}
		mean, std := stat.MeanStdDev(c.Numbers, nil)
		if std == 0 || math.IsNaN(std) {
			constant = append(constant, name)
			continue
		}
		stats = append(stats, ColumnStatistics{Name: name, Mean: mean, StdDev: std})
	}
	if len(invalid) > 0 {
		return nil, errors.Validation("fit data contains missing or infinite values", invalid)
	}
	if len(constant) > 0 {
		return nil, errors.New(errors.ErrorTypeData, "cannot standardize constant columns").
			WithDetail("columns", constant)
	}

	if t.fitted {
		t.logger.Warn("refitting transformer, previous statistics are discarded",
			zap.Int("previous_columns", len(t.stats)))
	}
	t.install(stats, d.Schema())

	t.logger.Info("fitted transformer",
		zap.Int("numeric_features", len(stats)),
		zap.Int("rows", d.Rows()))

	return t.apply(d)
}

// Transform standardizes d with the fitted statistics. It fails with
// not_fitted before any successful fit, and with schema_mismatch when d does
// not have exactly the fitted columns and kinds.
func (t *Transformer) Transform(d *dataset.Dataset) (*dataset.Dataset, error) {
	if !t.fitted {
		return nil, errors.NotFitted("must call FitTransform before Transform")
	}
	if err := t.checkSchema(d); err != nil {
		return nil, err
	}
	return t.apply(d)
}

// Fitted reports whether statistics are available.
func (t *Transformer) Fitted() bool { return t.fitted }

// Statistics returns a copy of the fitted statistics in column order.
func (t *Transformer) Statistics() []ColumnStatistics {
	return append([]ColumnStatistics(nil), t.stats...)
}

// Schema returns the column names and kinds seen at fit time.
func (t *Transformer) Schema() []dataset.Field {
	return append([]dataset.Field(nil), t.schema...)
}

// NumericColumns returns the names of the standardized columns.
func (t *Transformer) NumericColumns() []string {
	names := make([]string, len(t.stats))
	for i, s := range t.stats {
		names[i] = s.Name
	}
	return names
}

// FromStatistics returns a fitted Transformer with the given statistics and
// fit-time schema, as restored from a saved model bundle.
func FromStatistics(stats []ColumnStatistics, schema []dataset.Field, opts ...Option) (*Transformer, error) {
	kinds := make(map[string]dataset.Kind, len(schema))
	for _, f := range schema {
		kinds[f.Name] = f.Kind
	}
	for _, s := range stats {
		if k, ok := kinds[s.Name]; !ok || k != dataset.Numeric {
			return nil, errors.New(errors.ErrorTypeData, "statistics reference a column that is not numeric in the schema").
				WithDetail("column", s.Name)
		}
		if s.StdDev == 0 || math.IsNaN(s.StdDev) || math.IsInf(s.StdDev, 0) ||
			math.IsNaN(s.Mean) || math.IsInf(s.Mean, 0) {
			return nil, errors.New(errors.ErrorTypeData, "invalid saved statistics").
				WithDetail("column", s.Name)
		}
	}
	t := New(opts...)
	t.install(append([]ColumnStatistics(nil), stats...), append([]dataset.Field(nil), schema...))
	return t, nil
}

func (t *Transformer) install(stats []ColumnStatistics, schema []dataset.Field) {
	t.stats = stats
	t.schema = schema
	t.byName = make(map[string]int, len(stats))
	for i, s := range stats {
		t.byName[s.Name] = i
	}
	t.fitted = true
}

// checkSchema compares d against the fit-time schema by name and kind.
// Column order may differ.
func (t *Transformer) checkSchema(d *dataset.Dataset) error {
	want := make(map[string]dataset.Kind, len(t.schema))
	for _, f := range t.schema {
		want[f.Name] = f.Kind
	}

	var missing, extra, changed []string
	for _, f := range t.schema {
		c, ok := d.Column(f.Name)
		if !ok {
			missing = append(missing, f.Name)
			continue
		}
		if c.Kind != f.Kind {
			changed = append(changed, f.Name)
		}
	}
	for _, f := range d.Schema() {
		if _, ok := want[f.Name]; !ok {
			extra = append(extra, f.Name)
		}
	}
	if len(missing)+len(extra)+len(changed) > 0 {
		return errors.SchemaMismatch(missing, extra, changed)
	}
	return nil
}

func (t *Transformer) apply(d *dataset.Dataset) (*dataset.Dataset, error) {
	cols := d.Columns()
	out := make([]*dataset.Column, len(cols))
	for i, c := range cols {
		idx, ok := t.byName[c.Name]
		if !ok || c.Kind != dataset.Numeric {
			out[i] = c.Clone()
			continue
		}
		s := t.stats[idx]
		scaled := make([]float64, len(c.Numbers))
		for r, v := range c.Numbers {
			// NaN and Inf propagate; the predictor rejects them.
			scaled[r] = (v - s.Mean) / s.StdDev
		}
		out[i] = dataset.NumericColumn(c.Name, scaled)
	}
	return dataset.New(out...)
}
