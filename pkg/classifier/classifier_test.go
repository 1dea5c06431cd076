package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

// separable returns 40 rows where y = 1 exactly when x >= 0, plus a noise column.
func separable(t *testing.T) (*dataset.Dataset, []int) {
	t.Helper()
	x := make([]float64, 40)
	noise := make([]float64, 40)
	y := make([]int, 40)
	for i := range x {
		x[i] = float64(i-20) / 10
		noise[i] = float64((i * 7) % 5)
		if x[i] >= 0 {
			y[i] = 1
		}
	}
	ds, err := dataset.New(dataset.NumericColumn("x", x), dataset.NumericColumn("noise", noise))
	require.NoError(t, err)
	return ds, y
}

func accuracy(pred, y []int) float64 {
	var ok int
	for i := range y {
		if pred[i] == y[i] {
			ok++
		}
	}
	return float64(ok) / float64(len(y))
}

func TestKindsRegistered(t *testing.T) {
	assert.Equal(t, []string{KindGradientBoosting, KindLogisticRegression, KindRandomForest}, Kinds())
}

func TestRegisterDuplicate(t *testing.T) {
	err := Register(KindRandomForest, newRandomForest)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New("svm", nil, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "svm", e.Detail("model_type"))
	assert.Equal(t, Kinds(), e.Detail("supported"))
}

func TestNewUnknownParams(t *testing.T) {
	_, err := New(KindRandomForest, Params{"learning_rate": 0.1, "alpha": 1}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, []string{"alpha", "learning_rate"}, e.Detail("parameters"))
}

func TestNewInvalidParams(t *testing.T) {
	tests := []struct {
		kind   string
		params Params
	}{
		{KindRandomForest, Params{"n_estimators": 0}},
		{KindGradientBoosting, Params{"learning_rate": 0}},
		{KindGradientBoosting, Params{"subsample": 1.5}},
		{KindLogisticRegression, Params{"c": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			_, err := New(tt.kind, tt.params, zaptest.NewLogger(t))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestDefaults(t *testing.T) {
	rf, err := newRandomForest(nil)
	require.NoError(t, err)
	assert.Equal(t, 100, rf.(*RandomForest).NEstimators)
	assert.Equal(t, 10, rf.(*RandomForest).MaxDepth)
	assert.Equal(t, int64(42), rf.(*RandomForest).Seed)

	gb, err := newGradientBoosting(nil)
	require.NoError(t, err)
	assert.Equal(t, 5, gb.(*GradientBoosting).MaxDepth)
	assert.InDelta(t, 0.1, gb.(*GradientBoosting).LearningRate, 1e-12)

	lr, err := newLogisticRegression(nil)
	require.NoError(t, err)
	assert.Equal(t, 1000, lr.(*LogisticRegression).MaxIter)
}

func TestModelsLearnSeparableData(t *testing.T) {
	tests := []struct {
		kind   string
		params Params
		min    float64
	}{
		{KindRandomForest, Params{"n_estimators": 20}, 0.95},
		{KindGradientBoosting, Params{"n_estimators": 30}, 1.0},
		{KindLogisticRegression, nil, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			X, y := separable(t)
			c, err := New(tt.kind, tt.params, zaptest.NewLogger(t))
			require.NoError(t, err)
			require.NoError(t, c.Fit(X, y))
			assert.Equal(t, []string{"x", "noise"}, c.Features())

			pred, err := c.Predict(X)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, accuracy(pred, y), tt.min)

			probs, err := c.PredictProbability(X)
			require.NoError(t, err)
			require.Len(t, probs, X.Rows())
			for _, p := range probs {
				assert.True(t, p >= 0 && p <= 1, "probability %v out of range", p)
			}
		})
	}
}

func TestRandomForestDeterministic(t *testing.T) {
	X, y := separable(t)
	fit := func(workers float64) []float64 {
		c, err := New(KindRandomForest, Params{"n_estimators": 15, "n_jobs": workers}, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NoError(t, c.Fit(X, y))
		p, err := c.PredictProbability(X)
		require.NoError(t, err)
		return p
	}
	assert.Equal(t, fit(1), fit(4))
}

func TestTreeDepthBounded(t *testing.T) {
	X, y := separable(t)
	c, err := New(KindRandomForest, Params{"n_estimators": 5, "max_depth": 2}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.Fit(X, y))
	for _, tree := range c.Model().(*RandomForest).Trees {
		assert.LessOrEqual(t, tree.Depth(), 2)
	}
}

func TestGradientBoostingSingleClass(t *testing.T) {
	X, _ := separable(t)
	c, err := New(KindGradientBoosting, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	err = c.Fit(X, make([]int, X.Rows()))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestFitRejectsBadInput(t *testing.T) {
	X, y := separable(t)
	c, err := New(KindRandomForest, Params{"n_estimators": 2}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, errors.IsType(c.Fit(X, y[:3]), errors.ErrorTypeData))

	bad := append([]int(nil), y...)
	bad[0] = 2
	assert.True(t, errors.IsType(c.Fit(X, bad), errors.ErrorTypeData))

	withID, err := X.WithColumn(dataset.CategoricalColumn("id", make([]string, X.Rows()), nil))
	require.NoError(t, err)
	err = c.Fit(withID, y)
	require.Error(t, err)
	assert.Equal(t, []string{"id"}, errors.Columns(err))
}

func TestPredictBeforeFit(t *testing.T) {
	X, _ := separable(t)
	c, err := New(KindLogisticRegression, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = c.Predict(X)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFitted))
	_, err = c.Snapshot()
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFitted))
}

func TestPredictSchemaMismatch(t *testing.T) {
	X, y := separable(t)
	c, err := New(KindLogisticRegression, Params{"max_iter": 10}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.Fit(X, y))

	renamed, err := dataset.New(
		dataset.NumericColumn("x", make([]float64, 2)),
		dataset.NumericColumn("other", make([]float64, 2)),
	)
	require.NoError(t, err)
	_, err = c.Predict(renamed)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, []string{"noise"}, e.Detail("missing"))
	assert.Equal(t, []string{"other"}, e.Detail("extra"))
}

func TestPredictReorderedColumns(t *testing.T) {
	X, y := separable(t)
	c, err := New(KindGradientBoosting, Params{"n_estimators": 10}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.Fit(X, y))

	xc, _ := X.Column("x")
	nc, _ := X.Column("noise")
	swapped, err := dataset.New(nc, xc)
	require.NoError(t, err)

	want, err := c.PredictProbability(X)
	require.NoError(t, err)
	got, err := c.PredictProbability(swapped)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSnapshotRestore(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(kind, func(t *testing.T) {
			X, y := separable(t)
			c, err := New(kind, Params{"random_state": 7}, zaptest.NewLogger(t))
			require.NoError(t, err)
			require.NoError(t, c.Fit(X, y))

			snap, err := c.Snapshot()
			require.NoError(t, err)
			assert.Equal(t, kind, snap.Kind)

			restored, err := Restore(snap, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.Equal(t, c.Features(), restored.Features())

			want, err := c.PredictProbability(X)
			require.NoError(t, err)
			got, err := restored.PredictProbability(X)
			require.NoError(t, err)
			assert.InDeltaSlice(t, want, got, 1e-12)
		})
	}
}

func TestRestoreRejectsCorruptModel(t *testing.T) {
	_, err := Restore(&Snapshot{Kind: KindRandomForest, Features: []string{"x"}, Model: []byte("{")}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	_, err = Restore(&Snapshot{Kind: "svm"}, zaptest.NewLogger(t))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
