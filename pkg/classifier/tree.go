package classifier

import (
	"math"
	"math/rand"
	"sort"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

// Node is one node of a fitted tree. Leaves have Feature == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
	Samples   int     `json:"n"`
}

// Tree is a binary regression tree stored as a flat node slice rooted at
// index 0. Rows with x[Feature] <= Threshold go left.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict returns the leaf value reached by x.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

type treeParams struct {
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 means all features at every node
}

// leafFunc computes a leaf value from the sample indices reaching it.
type leafFunc func(idx []int) float64

type treeBuilder struct {
	params treeParams
	X      [][]float64
	target []float64
	leaf   leafFunc
	rng    *rand.Rand
	nodes  []Node
}

type candidate struct {
	feature   int
	threshold float64
	gain      float64
}

// growTree fits a CART tree on the rows in idx, choosing splits that most
// reduce the squared error of target. For 0/1 targets this is the same
// ordering as the Gini criterion.
func growTree(X [][]float64, target []float64, idx []int, p treeParams, leaf leafFunc, rng *rand.Rand) *Tree {
	b := &treeBuilder{params: p, X: X, target: target, leaf: leaf, rng: rng}
	b.build(idx, 0)
	return &Tree{Nodes: b.nodes}
}

func (b *treeBuilder) build(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Samples: len(idx)})

	if b.stop(idx, depth) {
		b.nodes[id].Value = b.leaf(idx)
		return id
	}
	split, ok := b.bestSplit(idx)
	if !ok {
		b.nodes[id].Value = b.leaf(idx)
		return id
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.X[i][split.feature] <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	// b.nodes may have been reallocated by the recursive calls.
	b.nodes[id].Feature = split.feature
	b.nodes[id].Threshold = split.threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	b.nodes[id].Value = b.leaf(idx)
	return id
}

func (b *treeBuilder) stop(idx []int, depth int) bool {
	if len(idx) < b.params.minSamplesSplit || len(idx) < 2*b.params.minSamplesLeaf {
		return true
	}
	if b.params.maxDepth > 0 && depth >= b.params.maxDepth {
		return true
	}
	first := b.target[idx[0]]
	for _, i := range idx[1:] {
		if b.target[i] != first {
			return false
		}
	}
	return true
}

func (b *treeBuilder) features() []int {
	p := len(b.X[0])
	if b.params.maxFeatures <= 0 || b.params.maxFeatures >= p {
		all := make([]int, p)
		for j := range all {
			all[j] = j
		}
		return all
	}
	return b.rng.Perm(p)[:b.params.maxFeatures]
}

func (b *treeBuilder) bestSplit(idx []int) (candidate, bool) {
	n := len(idx)
	var total, totalSq float64
	for _, i := range idx {
		y := b.target[i]
		total += y
		totalSq += y * y
	}
	parent := totalSq - total*total/float64(n)

	best := candidate{feature: -1}
	order := make([]int, n)
	minLeaf := b.params.minSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}

	for _, f := range b.features() {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return b.X[order[a]][f] < b.X[order[c]][f] })

		var ls, lsq float64
		for k := 0; k < n-1; k++ {
			y := b.target[order[k]]
			ls += y
			lsq += y * y

			nl, nr := k+1, n-k-1
			if nl < minLeaf {
				continue
			}
			if nr < minLeaf {
				break
			}
			v, next := b.X[order[k]][f], b.X[order[k+1]][f]
			if v == next {
				continue
			}
			rs, rsq := total-ls, totalSq-lsq
			sse := (lsq - ls*ls/float64(nl)) + (rsq - rs*rs/float64(nr))
			gain := parent - sse
			if gain > best.gain+1e-12 {
				thr := v + (next-v)/2
				if thr >= next {
					thr = v
				}
				best = candidate{feature: f, threshold: thr, gain: gain}
			}
		}
	}
	return best, best.feature >= 0
}

func leafMean(target []float64) leafFunc {
	return func(idx []int) float64 {
		if len(idx) == 0 {
			return 0
		}
		var s float64
		for _, i := range idx {
			s += target[i]
		}
		return s / float64(len(idx))
	}
}

// checkTraining validates a training matrix and returns targets as floats.
func checkTraining(X [][]float64, y []int) ([]float64, error) {
	if len(X) == 0 {
		return nil, errors.New(errors.ErrorTypeData, "empty training matrix")
	}
	if len(y) != len(X) {
		return nil, errors.Newf(errors.ErrorTypeData, "got %d labels for %d rows", len(y), len(X))
	}
	p := len(X[0])
	if p == 0 {
		return nil, errors.New(errors.ErrorTypeData, "training matrix has no features")
	}
	target := make([]float64, len(y))
	for i, row := range X {
		if len(row) != p {
			return nil, errors.Newf(errors.ErrorTypeData, "row %d has %d features, expected %d", i, len(row), p)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Newf(errors.ErrorTypeValidation, "row %d has a non-finite feature", i)
			}
		}
		target[i] = float64(y[i])
	}
	return target, nil
}

// checkInference validates an inference matrix against the fitted width.
func checkInference(X [][]float64, width int) error {
	if width == 0 {
		return errors.NotFitted("model has not been fitted")
	}
	for i, row := range X {
		if len(row) != width {
			return errors.Newf(errors.ErrorTypeSchemaMismatch, "row %d has %d features, expected %d", i, len(row), width)
		}
	}
	return nil
}

func threshold(probs []float64) []int {
	out := make([]int, len(probs))
	for i, p := range probs {
		if p > 0.5 {
			out[i] = 1
		}
	}
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
