package classifier

import (
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest is a bagged ensemble of CART trees. The positive-class
// probability is the mean leaf frequency across trees.
type RandomForest struct {
	NEstimators     int     `json:"n_estimators"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	MaxFeatures     int     `json:"max_features"` // 0 means round(sqrt(p))
	Bootstrap       bool    `json:"bootstrap"`
	Seed            int64   `json:"seed"`
	Workers         int     `json:"-"`
	NFeatures       int     `json:"n_features"`
	Trees           []*Tree `json:"trees"`
}

func newRandomForest(p Params) (Model, error) {
	if err := p.allow(KindRandomForest,
		"n_estimators", "max_depth", "min_samples_split", "min_samples_leaf",
		"max_features", "bootstrap", "random_state", "n_jobs"); err != nil {
		return nil, err
	}
	rf := &RandomForest{
		NEstimators:     p.Int("n_estimators", 100),
		MaxDepth:        p.Int("max_depth", 10),
		MinSamplesSplit: p.Int("min_samples_split", 2),
		MinSamplesLeaf:  p.Int("min_samples_leaf", 1),
		MaxFeatures:     p.Int("max_features", 0),
		Bootstrap:       p.Bool("bootstrap", true),
		Seed:            int64(p.Int("random_state", 42)),
		Workers:         p.Int("n_jobs", 0),
	}
	for key, v := range map[string]int{
		"n_estimators":      rf.NEstimators,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
	} {
		if err := positive(KindRandomForest, key, v); err != nil {
			return nil, err
		}
	}
	return rf, nil
}

// Fit grows NEstimators trees in parallel. Tree i draws its bootstrap sample
// and feature subsets from a source seeded with Seed+i, so the result does
// not depend on scheduling.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	target, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	n, p := len(X), len(X[0])

	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Max(1, math.Round(math.Sqrt(float64(p)))))
	}
	params := treeParams{
		maxDepth:        rf.MaxDepth,
		minSamplesSplit: rf.MinSamplesSplit,
		minSamplesLeaf:  rf.MinSamplesLeaf,
		maxFeatures:     maxFeatures,
	}

	workers := rf.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*Tree, rf.NEstimators)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(rf.Seed + int64(i))) //nolint:gosec // reproducible bagging
			idx := make([]int, n)
			for j := range idx {
				if rf.Bootstrap {
					idx[j] = rng.Intn(n)
				} else {
					idx[j] = j
				}
			}
			trees[i] = growTree(X, target, idx, params, leafMean(target), rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rf.Trees = trees
	rf.NFeatures = p
	return nil
}

// PredictProbability averages the positive-class frequency of every tree.
func (rf *RandomForest) PredictProbability(X [][]float64) ([]float64, error) {
	if err := checkInference(X, rf.NFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		var s float64
		for _, t := range rf.Trees {
			s += t.Predict(row)
		}
		out[i] = s / float64(len(rf.Trees))
	}
	return out, nil
}

// Predict returns 1 where the mean probability exceeds 0.5.
func (rf *RandomForest) Predict(X [][]float64) ([]int, error) {
	probs, err := rf.PredictProbability(X)
	if err != nil {
		return nil, err
	}
	return threshold(probs), nil
}
