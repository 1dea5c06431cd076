package classifier

import (
	"math"
	"math/rand"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

// GradientBoosting fits regression trees to the gradient of the logistic
// loss. Leaf values are one Newton step, sum(residual) / sum(p(1-p)).
type GradientBoosting struct {
	NEstimators     int     `json:"n_estimators"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	LearningRate    float64 `json:"learning_rate"`
	Subsample       float64 `json:"subsample"`
	Seed            int64   `json:"seed"`
	NFeatures       int     `json:"n_features"`
	Init            float64 `json:"init"` // log-odds of the training positive rate
	Trees           []*Tree `json:"trees"`
}

func newGradientBoosting(p Params) (Model, error) {
	if err := p.allow(KindGradientBoosting,
		"n_estimators", "max_depth", "min_samples_split", "min_samples_leaf",
		"learning_rate", "subsample", "random_state"); err != nil {
		return nil, err
	}
	gb := &GradientBoosting{
		NEstimators:     p.Int("n_estimators", 100),
		MaxDepth:        p.Int("max_depth", 5),
		MinSamplesSplit: p.Int("min_samples_split", 2),
		MinSamplesLeaf:  p.Int("min_samples_leaf", 1),
		LearningRate:    p.Float("learning_rate", 0.1),
		Subsample:       p.Float("subsample", 1.0),
		Seed:            int64(p.Int("random_state", 42)),
	}
	if err := positive(KindGradientBoosting, "n_estimators", gb.NEstimators); err != nil {
		return nil, err
	}
	if gb.LearningRate <= 0 || gb.LearningRate > 1 {
		return nil, errors.Configuration("learning_rate must be in (0, 1]").
			WithDetail("value", gb.LearningRate)
	}
	if gb.Subsample <= 0 || gb.Subsample > 1 {
		return nil, errors.Configuration("subsample must be in (0, 1]").
			WithDetail("value", gb.Subsample)
	}
	return gb, nil
}

// Fit runs NEstimators boosting rounds. Both classes must be present.
func (gb *GradientBoosting) Fit(X [][]float64, y []int) error {
	target, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	n := len(X)

	var pos float64
	for _, t := range target {
		pos += t
	}
	rate := pos / float64(n)
	if rate == 0 || rate == 1 {
		return errors.New(errors.ErrorTypeData, "training labels contain a single class")
	}
	gb.Init = math.Log(rate / (1 - rate))

	rng := rand.New(rand.NewSource(gb.Seed)) //nolint:gosec // reproducible subsampling
	params := treeParams{
		maxDepth:        gb.MaxDepth,
		minSamplesSplit: gb.MinSamplesSplit,
		minSamplesLeaf:  gb.MinSamplesLeaf,
	}

	score := make([]float64, n)
	for i := range score {
		score[i] = gb.Init
	}
	residual := make([]float64, n)
	hessian := make([]float64, n)
	leaf := func(idx []int) float64 {
		var num, den float64
		for _, i := range idx {
			num += residual[i]
			den += hessian[i]
		}
		if den < 1e-12 {
			return 0
		}
		return num / den
	}

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	sampleSize := int(math.Max(1, math.Round(gb.Subsample*float64(n))))

	trees := make([]*Tree, 0, gb.NEstimators)
	for m := 0; m < gb.NEstimators; m++ {
		for i := range score {
			p := sigmoid(score[i])
			residual[i] = target[i] - p
			hessian[i] = p * (1 - p)
		}
		idx := all
		if sampleSize < n {
			idx = rng.Perm(n)[:sampleSize]
		}
		tree := growTree(X, residual, idx, params, leaf, rng)
		trees = append(trees, tree)
		for i, row := range X {
			score[i] += gb.LearningRate * tree.Predict(row)
		}
	}

	gb.Trees = trees
	gb.NFeatures = len(X[0])
	return nil
}

// PredictProbability returns sigmoid(Init + LearningRate * sum of tree outputs).
func (gb *GradientBoosting) PredictProbability(X [][]float64) ([]float64, error) {
	if err := checkInference(X, gb.NFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		s := gb.Init
		for _, t := range gb.Trees {
			s += gb.LearningRate * t.Predict(row)
		}
		out[i] = sigmoid(s)
	}
	return out, nil
}

// Predict returns 1 where the probability exceeds 0.5.
func (gb *GradientBoosting) Predict(X [][]float64) ([]int, error) {
	probs, err := gb.PredictProbability(X)
	if err != nil {
		return nil, err
	}
	return threshold(probs), nil
}
