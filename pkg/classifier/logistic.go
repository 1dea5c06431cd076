package classifier

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

// LogisticRegression is an L2-regularized linear model fitted by full-batch
// gradient descent. C is the inverse regularization strength.
type LogisticRegression struct {
	MaxIter      int       `json:"max_iter"`
	LearningRate float64   `json:"learning_rate"`
	C            float64   `json:"c"`
	Tol          float64   `json:"tol"`
	NFeatures    int       `json:"n_features"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	Iterations   int       `json:"iterations"`
}

func newLogisticRegression(p Params) (Model, error) {
	// random_state is accepted so configs can share one parameter block;
	// the solver is deterministic.
	if err := p.allow(KindLogisticRegression, "max_iter", "learning_rate", "c", "tol", "random_state"); err != nil {
		return nil, err
	}
	lr := &LogisticRegression{
		MaxIter:      p.Int("max_iter", 1000),
		LearningRate: p.Float("learning_rate", 0.1),
		C:            p.Float("c", 1.0),
		Tol:          p.Float("tol", 1e-6),
	}
	if err := positive(KindLogisticRegression, "max_iter", lr.MaxIter); err != nil {
		return nil, err
	}
	if lr.C <= 0 || lr.LearningRate <= 0 {
		return nil, errors.Configuration("C and learning_rate must be positive")
	}
	return lr, nil
}

// Fit minimizes mean log loss plus ||w||^2 / (2 C n).
func (lr *LogisticRegression) Fit(X [][]float64, y []int) error {
	target, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	n, p := len(X), len(X[0])
	w := make([]float64, p)
	grad := make([]float64, p)
	var b float64
	penalty := 1 / (lr.C * float64(n))

	iter := 0
	for ; iter < lr.MaxIter; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		var gb float64
		for i, row := range X {
			diff := sigmoid(floats.Dot(w, row)+b) - target[i]
			floats.AddScaled(grad, diff, row)
			gb += diff
		}
		floats.Scale(1/float64(n), grad)
		floats.AddScaled(grad, penalty, w)
		gb /= float64(n)

		floats.AddScaled(w, -lr.LearningRate, grad)
		b -= lr.LearningRate * gb

		if math.Max(floats.Norm(grad, math.Inf(1)), math.Abs(gb)) < lr.Tol {
			iter++
			break
		}
	}

	lr.Weights = w
	lr.Bias = b
	lr.NFeatures = p
	lr.Iterations = iter
	return nil
}

// PredictProbability returns sigmoid(w.x + b) per row.
func (lr *LogisticRegression) PredictProbability(X [][]float64) ([]float64, error) {
	if err := checkInference(X, lr.NFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = sigmoid(floats.Dot(lr.Weights, row) + lr.Bias)
	}
	return out, nil
}

// Predict returns 1 where the probability exceeds 0.5.
func (lr *LogisticRegression) Predict(X [][]float64) ([]int, error) {
	probs, err := lr.PredictProbability(X)
	if err != nil {
		return nil, err
	}
	return threshold(probs), nil
}
