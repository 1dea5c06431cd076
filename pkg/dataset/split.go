package dataset

import (
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
)

// SplitConfig configures StratifiedSplit.
type SplitConfig struct {
	Target        string
	PositiveLabel string
	TestSize      float64 // held-out fraction in (0, 1)
	Seed          int64
}

// Split is a stratified train/test partition. Features exclude the target.
type Split struct {
	TrainX    *Dataset
	TestX     *Dataset
	TrainY    []int
	TestY     []int
	TrainRows []int // row indices into the source dataset
	TestRows  []int
}

// StratifiedSplit partitions d so that both sides keep the class proportions
// of the target column. The test side has ceil(TestSize*n) rows, allocated to
// classes by largest remainder. The same seed always yields the same partition.
func StratifiedSplit(d *Dataset, cfg SplitConfig, log *zap.Logger) (*Split, error) {
	log = logger.OrGlobal(log)

	if cfg.TestSize <= 0 || cfg.TestSize >= 1 {
		return nil, errors.New(errors.ErrorTypeConfig, "test size must be in (0, 1)").
			WithDetail("test_size", cfg.TestSize)
	}

	labels, err := Labels(d, cfg.Target, cfg.PositiveLabel)
	if err != nil {
		return nil, err
	}

	n := len(labels)
	nTest := int(math.Ceil(cfg.TestSize * float64(n)))
	if nTest >= n || n-nTest < 1 {
		return nil, errors.Newf(errors.ErrorTypeData,
			"cannot split %d rows with test size %.3f", n, cfg.TestSize)
	}

	byClass := [2][]int{}
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	for class, rows := range byClass {
		if len(rows) < 2 {
			return nil, errors.Newf(errors.ErrorTypeData,
				"class %d has %d rows, stratified split needs at least 2", class, len(rows)).
				WithDetail("column", cfg.Target)
		}
	}

	alloc := allocate([]int{len(byClass[0]), len(byClass[1])}, nTest)

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible partition, not security sensitive
	var trainRows, testRows []int
	for class, rows := range byClass {
		perm := append([]int(nil), rows...)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		testRows = append(testRows, perm[:alloc[class]]...)
		trainRows = append(trainRows, perm[alloc[class]:]...)
	}
	rng.Shuffle(len(trainRows), func(i, j int) { trainRows[i], trainRows[j] = trainRows[j], trainRows[i] })
	rng.Shuffle(len(testRows), func(i, j int) { testRows[i], testRows[j] = testRows[j], testRows[i] })

	features := d.Drop(cfg.Target)
	trainX, err := features.Take(trainRows)
	if err != nil {
		return nil, err
	}
	testX, err := features.Take(testRows)
	if err != nil {
		return nil, err
	}

	s := &Split{
		TrainX:    trainX,
		TestX:     testX,
		TrainY:    pick(labels, trainRows),
		TestY:     pick(labels, testRows),
		TrainRows: trainRows,
		TestRows:  testRows,
	}

	log.Info("split dataset",
		zap.Int("train_rows", len(trainRows)),
		zap.Int("test_rows", len(testRows)),
		zap.Float64("train_positive_rate", PositiveRate(s.TrainY)),
		zap.Float64("test_positive_rate", PositiveRate(s.TestY)),
		zap.Int64("seed", cfg.Seed))
	return s, nil
}

// allocate distributes total across groups proportionally to counts using
// the largest remainder method. Ties go to the lower group index.
func allocate(counts []int, total int) []int {
	n := 0
	for _, c := range counts {
		n += c
	}
	out := make([]int, len(counts))
	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, len(counts))
	assigned := 0
	for i, c := range counts {
		exact := float64(c) * float64(total) / float64(n)
		out[i] = int(math.Floor(exact))
		assigned += out[i]
		rems[i] = rem{idx: i, frac: exact - float64(out[i])}
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for k := 0; assigned < total; k++ {
		i := rems[k%len(rems)].idx
		if out[i] < counts[i] {
			out[i]++
			assigned++
		}
	}
	return out
}

func pick(labels []int, rows []int) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = labels[r]
	}
	return out
}
