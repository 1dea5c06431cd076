// Package predict guards model inference against numerically invalid input.
//
// Safe and SafeProbability check a batch for missing values, then for
// infinite values, and only then call the model. A batch that fails either
// check never reaches the model. The gate performs no imputation or clipping.
//
// The functions hold no state and may be called concurrently, provided the
// model's own inference methods are safe for concurrent read-only use.
package predict

import (
	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/errors"
	"github.com/Dawood-ML/uv-project-management/pkg/metrics"
)

// Predictor produces one class label per row of a batch.
type Predictor interface {
	Predict(batch *dataset.Dataset) ([]int, error)
}

// ProbabilityPredictor produces one positive-class probability per row.
type ProbabilityPredictor interface {
	PredictProbability(batch *dataset.Dataset) ([]float64, error)
}

// Validate runs the completeness check followed by the finiteness check.
// The returned error is a validation error whose "columns" detail names
// every offending column in dataset order.
func Validate(batch *dataset.Dataset) error {
	var missing []string
	for _, c := range batch.Columns() {
		if c.HasMissing() {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		metrics.ValidationRejections.WithLabelValues("missing").Inc()
		return errors.Validation("input contains missing values", missing).
			WithDetail("reason", "missing")
	}

	var infinite []string
	for _, c := range batch.Columns() {
		if c.HasInf() {
			infinite = append(infinite, c.Name)
		}
	}
	if len(infinite) > 0 {
		metrics.ValidationRejections.WithLabelValues("infinite").Inc()
		return errors.Validation("input contains infinite values", infinite).
			WithDetail("reason", "infinite")
	}
	return nil
}

// Safe validates batch and returns model's predictions unchanged.
func Safe(model Predictor, batch *dataset.Dataset) ([]int, error) {
	if err := Validate(batch); err != nil {
		return nil, err
	}
	out, err := model.Predict(batch)
	if err != nil {
		return nil, err
	}
	if len(out) != batch.Rows() {
		return nil, errors.Newf(errors.ErrorTypeInternal,
			"model returned %d predictions for %d rows", len(out), batch.Rows())
	}
	metrics.PredictionsServed.Add(float64(len(out)))
	return out, nil
}

// SafeProbability validates batch and returns model's probabilities unchanged.
func SafeProbability(model ProbabilityPredictor, batch *dataset.Dataset) ([]float64, error) {
	if err := Validate(batch); err != nil {
		return nil, err
	}
	out, err := model.PredictProbability(batch)
	if err != nil {
		return nil, err
	}
	if len(out) != batch.Rows() {
		return nil, errors.Newf(errors.ErrorTypeInternal,
			"model returned %d probabilities for %d rows", len(out), batch.Rows())
	}
	return out, nil
}
