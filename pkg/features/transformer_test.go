package features

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/stat"

	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

func mustDataset(t *testing.T, cols ...*dataset.Column) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(cols...)
	require.NoError(t, err)
	return ds
}

func numbers(t *testing.T, ds *dataset.Dataset, name string) []float64 {
	t.Helper()
	c, ok := ds.Column(name)
	require.True(t, ok, "column %s", name)
	return c.Numbers
}

func TestFitTransformScenario(t *testing.T) {
	ds := mustDataset(t,
		dataset.NumericColumn("a", []float64{1, 2, 3, 4, 5}),
		dataset.NumericColumn("b", []float64{10, 20, 30, 40, 50}),
	)

	tr := New(WithLogger(zaptest.NewLogger(t)))
	out, err := tr.FitTransform(ds)
	require.NoError(t, err)

	mean, std := stat.MeanStdDev(numbers(t, out, "a"), nil)
	assert.InDelta(t, 0.0, mean, 0.01)
	assert.InDelta(t, 1.0, std, 0.01)

	stats := tr.Statistics()
	require.Len(t, stats, 2)
	assert.Equal(t, "a", stats[0].Name)
	assert.InDelta(t, 3.0, stats[0].Mean, 1e-12)
	// Sample standard deviation of 1..5 is sqrt(2.5).
	assert.InDelta(t, math.Sqrt(2.5), stats[0].StdDev, 1e-12)
}

func TestTransformBeforeFit(t *testing.T) {
	tr := New(WithLogger(zaptest.NewLogger(t)))

	_, err := tr.Transform(mustDataset(t, dataset.NumericColumn("a", []float64{1, 2, 3})))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFitted))

	_, err = tr.Transform(mustDataset(t))
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFitted))
}

func TestReapplicationGivesUnitStatistics(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		n := 3 + rng.Intn(200)
		x := make([]float64, n)
		for i := range x {
			x[i] = rng.NormFloat64()*rng.Float64()*100 + rng.Float64()*1000
		}
		ds := mustDataset(t, dataset.NumericColumn("x", x))

		tr := New(WithLogger(zaptest.NewLogger(t)))
		_, err := tr.FitTransform(ds)
		require.NoError(t, err)

		again, err := tr.Transform(ds)
		require.NoError(t, err)
		mean, std := stat.MeanStdDev(numbers(t, again, "x"), nil)
		assert.InDelta(t, 0.0, mean, 1e-2)
		assert.InDelta(t, 1.0, std, 1e-2)
	}
}

func TestNoLeakage(t *testing.T) {
	train := mustDataset(t, dataset.NumericColumn("x", []float64{0, 1, 2, 3, 4}))
	test := mustDataset(t, dataset.NumericColumn("x", []float64{1000, 2000, 3000}))

	tr := New(WithLogger(zaptest.NewLogger(t)))
	_, err := tr.FitTransform(train)
	require.NoError(t, err)
	before := tr.Statistics()

	out, err := tr.Transform(test)
	require.NoError(t, err)
	assert.Equal(t, before, tr.Statistics())

	s := before[0]
	for i, v := range []float64{1000, 2000, 3000} {
		assert.InDelta(t, (v-s.Mean)/s.StdDev, numbers(t, out, "x")[i], 1e-9)
	}
}

func TestRowCountAndOrderPreserved(t *testing.T) {
	x := []float64{5, 1, 4, 2, 3}
	ds := mustDataset(t,
		dataset.NumericColumn("x", x),
		dataset.CategoricalColumn("id", []string{"e", "a", "d", "b", "c"}, nil),
	)

	tr := New(WithLogger(zaptest.NewLogger(t)))
	fitted, err := tr.FitTransform(ds)
	require.NoError(t, err)
	applied, err := tr.Transform(ds)
	require.NoError(t, err)

	for _, out := range []*dataset.Dataset{fitted, applied} {
		assert.Equal(t, ds.Rows(), out.Rows())
		assert.Equal(t, ds.Names(), out.Names())
		id, _ := out.Column("id")
		assert.Equal(t, []string{"e", "a", "d", "b", "c"}, id.Labels)

		scaled := numbers(t, out, "x")
		for i := 1; i < len(x); i++ {
			assert.Equal(t, x[i] > x[i-1], scaled[i] > scaled[i-1])
		}
	}

	// The input is not modified.
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, numbers(t, ds, "x"))
}

func TestRefitOverwrites(t *testing.T) {
	tr := New(WithLogger(zaptest.NewLogger(t)))
	_, err := tr.FitTransform(mustDataset(t, dataset.NumericColumn("x", []float64{1, 2, 3})))
	require.NoError(t, err)
	_, err = tr.FitTransform(mustDataset(t, dataset.NumericColumn("x", []float64{10, 20, 30})))
	require.NoError(t, err)
	assert.InDelta(t, 20.0, tr.Statistics()[0].Mean, 1e-12)
}

func TestRejectRefit(t *testing.T) {
	tr := New(WithLogger(zaptest.NewLogger(t)), WithRejectRefit())
	ds := mustDataset(t, dataset.NumericColumn("x", []float64{1, 2, 3}))
	_, err := tr.FitTransform(ds)
	require.NoError(t, err)
	_, err = tr.FitTransform(ds)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
}

func TestFitRejectsUnscalableColumns(t *testing.T) {
	tests := []struct {
		name string
		col  *dataset.Column
		want errors.ErrorType
	}{
		{"constant", dataset.NumericColumn("x", []float64{7, 7, 7}), errors.ErrorTypeData},
		{"single row", dataset.NumericColumn("x", []float64{7}), errors.ErrorTypeData},
		{"missing", dataset.NumericColumn("x", []float64{1, math.NaN(), 3}), errors.ErrorTypeValidation},
		{"infinite", dataset.NumericColumn("x", []float64{1, math.Inf(-1), 3}), errors.ErrorTypeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(WithLogger(zaptest.NewLogger(t)))
			_, err := tr.FitTransform(mustDataset(t, tt.col))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.want), "got %v", err)
			assert.False(t, tr.Fitted())
		})
	}
}

func TestTransformSchemaMismatch(t *testing.T) {
	tr := New(WithLogger(zaptest.NewLogger(t)))
	_, err := tr.FitTransform(mustDataset(t,
		dataset.NumericColumn("a", []float64{1, 2, 3}),
		dataset.NumericColumn("b", []float64{4, 5, 6}),
		dataset.CategoricalColumn("plan", []string{"x", "y", "z"}, nil),
	))
	require.NoError(t, err)

	_, err = tr.Transform(mustDataset(t,
		dataset.NumericColumn("a", []float64{1}),
		dataset.NumericColumn("c", []float64{1}),
		dataset.NumericColumn("plan", []float64{1}),
	))
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, []string{"b"}, e.Detail("missing"))
	assert.Equal(t, []string{"c"}, e.Detail("extra"))
	assert.Equal(t, []string{"plan"}, e.Detail("changed"))
}

func TestTransformAcceptsReorderedColumns(t *testing.T) {
	tr := New(WithLogger(zaptest.NewLogger(t)))
	_, err := tr.FitTransform(mustDataset(t,
		dataset.NumericColumn("a", []float64{1, 2, 3}),
		dataset.NumericColumn("b", []float64{4, 5, 6}),
	))
	require.NoError(t, err)

	out, err := tr.Transform(mustDataset(t,
		dataset.NumericColumn("b", []float64{5}),
		dataset.NumericColumn("a", []float64{2}),
	))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, numbers(t, out, "a")[0], 1e-12)
	assert.InDelta(t, 0.0, numbers(t, out, "b")[0], 1e-12)
}

func TestTransformPropagatesMissing(t *testing.T) {
	tr := New(WithLogger(zaptest.NewLogger(t)))
	_, err := tr.FitTransform(mustDataset(t, dataset.NumericColumn("a", []float64{1, 2, 3})))
	require.NoError(t, err)

	out, err := tr.Transform(mustDataset(t, dataset.NumericColumn("a", []float64{math.NaN(), math.Inf(1)})))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(numbers(t, out, "a")[0]))
	assert.True(t, math.IsInf(numbers(t, out, "a")[1], 1))
}

func TestFromStatistics(t *testing.T) {
	schema := []dataset.Field{{Name: "a", Kind: dataset.Numeric}}
	tr, err := FromStatistics([]ColumnStatistics{{Name: "a", Mean: 2, StdDev: 0.5}}, schema,
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.True(t, tr.Fitted())
	assert.Equal(t, []string{"a"}, tr.NumericColumns())

	out, err := tr.Transform(mustDataset(t, dataset.NumericColumn("a", []float64{3})))
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, numbers(t, out, "a"))

	_, err = FromStatistics([]ColumnStatistics{{Name: "a", Mean: 2, StdDev: 0}}, schema)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	_, err = FromStatistics([]ColumnStatistics{{Name: "z", Mean: 2, StdDev: 1}}, schema)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestConcurrentTransform(t *testing.T) {
	tr := New(WithLogger(zaptest.NewLogger(t)))
	ds := mustDataset(t, dataset.NumericColumn("a", []float64{1, 2, 3, 4}))
	_, err := tr.FitTransform(ds)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := tr.Transform(ds)
			assert.NoError(t, err)
			assert.Equal(t, 4, out.Rows())
		}()
	}
	wg.Wait()
}
