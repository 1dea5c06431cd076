// Package evaluation scores a binary churn classifier on held-out data and
// translates the confusion matrix into campaign economics.
package evaluation

import (
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/errors"
	"github.com/Dawood-ML/uv-project-management/pkg/predict"
)

// Model is what Evaluate needs from a fitted classifier.
type Model interface {
	predict.Predictor
	predict.ProbabilityPredictor
}

// ConfusionMatrix counts outcomes with churn (1) as the positive class.
type ConfusionMatrix struct {
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TP int `json:"tp"`
}

// Matrix returns [[tn, fp], [fn, tp]].
func (c ConfusionMatrix) Matrix() [][]int {
	return [][]int{{c.TN, c.FP}, {c.FN, c.TP}}
}

// Total returns the number of scored rows.
func (c ConfusionMatrix) Total() int { return c.TN + c.FP + c.FN + c.TP }

// Metrics holds the classification scores of one evaluation.
type Metrics struct {
	Accuracy  float64         `json:"accuracy"`
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1"`
	ROCAUC    float64         `json:"roc_auc"`
	Confusion ConfusionMatrix `json:"confusion_matrix"`
}

// Evaluate predicts X through the validation gate and scores the result
// against y.
func Evaluate(model Model, X *dataset.Dataset, y []int) (*Metrics, error) {
	if len(y) != X.Rows() {
		return nil, errors.Newf(errors.ErrorTypeData, "got %d labels for %d rows", len(y), X.Rows())
	}
	pred, err := predict.Safe(model, X)
	if err != nil {
		return nil, err
	}
	prob, err := predict.SafeProbability(model, X)
	if err != nil {
		return nil, err
	}
	return Compute(y, pred, prob)
}

// Compute scores hard predictions and positive-class probabilities against
// the true labels. Precision, recall and F1 are 0 when undefined.
func Compute(y, pred []int, prob []float64) (*Metrics, error) {
	if len(y) == 0 {
		return nil, errors.New(errors.ErrorTypeData, "cannot evaluate an empty label set")
	}
	if len(pred) != len(y) || len(prob) != len(y) {
		return nil, errors.Newf(errors.ErrorTypeData,
			"length mismatch: %d labels, %d predictions, %d probabilities", len(y), len(pred), len(prob))
	}

	cm, err := Confusion(y, pred)
	if err != nil {
		return nil, err
	}
	auc, err := ROCAUC(y, prob)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		Accuracy:  float64(cm.TP+cm.TN) / float64(cm.Total()),
		Precision: ratio(cm.TP, cm.TP+cm.FP),
		Recall:    ratio(cm.TP, cm.TP+cm.FN),
		ROCAUC:    auc,
		Confusion: cm,
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m, nil
}

// Confusion tallies y against pred. Labels must be 0 or 1.
func Confusion(y, pred []int) (ConfusionMatrix, error) {
	var cm ConfusionMatrix
	if len(y) != len(pred) {
		return cm, errors.Newf(errors.ErrorTypeData, "got %d predictions for %d labels", len(pred), len(y))
	}
	for i := range y {
		switch {
		case y[i] == 1 && pred[i] == 1:
			cm.TP++
		case y[i] == 0 && pred[i] == 0:
			cm.TN++
		case y[i] == 0 && pred[i] == 1:
			cm.FP++
		case y[i] == 1 && pred[i] == 0:
			cm.FN++
		default:
			return cm, errors.Newf(errors.ErrorTypeData, "row %d has non-binary label %d or prediction %d", i, y[i], pred[i])
		}
	}
	return cm, nil
}

// ROCAUC returns the area under the ROC curve of prob against y. Tied
// scores contribute a diagonal segment. Both classes must be present.
func ROCAUC(y []int, prob []float64) (float64, error) {
	if len(y) != len(prob) {
		return 0, errors.Newf(errors.ErrorTypeData, "got %d scores for %d labels", len(prob), len(y))
	}
	scores := make([]float64, len(prob))
	classes := make([]bool, len(y))
	var pos int
	for i := range y {
		if math.IsNaN(prob[i]) {
			return 0, errors.Newf(errors.ErrorTypeData, "score %d is NaN", i)
		}
		scores[i] = prob[i]
		classes[i] = y[i] == 1
		if classes[i] {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return 0, errors.New(errors.ErrorTypeData, "ROC-AUC is undefined when only one class is present")
	}

	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
