package modelstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Dawood-ML/uv-project-management/pkg/classifier"
	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/errors"
	"github.com/Dawood-ML/uv-project-management/pkg/evaluation"
	"github.com/Dawood-ML/uv-project-management/pkg/features"
)

func fitted(t *testing.T) (*classifier.Classifier, *features.Transformer, *dataset.Dataset) {
	t.Helper()
	log := zaptest.NewLogger(t)
	x := make([]float64, 30)
	z := make([]float64, 30)
	y := make([]int, 30)
	for i := range x {
		x[i] = float64(i)
		z[i] = float64(i%4) * 10
		if i >= 15 {
			y[i] = 1
		}
	}
	ds, err := dataset.New(dataset.NumericColumn("Tenure", x), dataset.NumericColumn("Charges", z))
	require.NoError(t, err)

	tr := features.New(features.WithLogger(log))
	scaled, err := tr.FitTransform(ds)
	require.NoError(t, err)

	c, err := classifier.New(classifier.KindRandomForest, classifier.Params{"n_estimators": 5}, log)
	require.NoError(t, err)
	require.NoError(t, c.Fit(scaled, y))
	return c, tr, ds
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"model.json", "model.json.zst", "model.json.gz", "model.json.lz4", "model.json.s2"} {
		t.Run(name, func(t *testing.T) {
			log := zaptest.NewLogger(t)
			c, tr, ds := fitted(t)

			b, err := NewBundle(c, tr)
			require.NoError(t, err)
			b.RunID = "run-1"
			b.Target = "Churn"
			b.DroppedColumns = []string{"CustomerID"}
			b.Metrics = &evaluation.Metrics{ROCAUC: 0.9}

			path := filepath.Join(t.TempDir(), "nested", "dir", name)
			require.NoError(t, Save(path, b, log))

			loaded, err := Load(path, log)
			require.NoError(t, err)
			assert.Equal(t, FormatVersion, loaded.Version)
			assert.Equal(t, "run-1", loaded.RunID)
			assert.Equal(t, []string{"CustomerID"}, loaded.DroppedColumns)
			assert.InDelta(t, 0.9, loaded.Metrics.ROCAUC, 1e-12)
			assert.Equal(t, tr.Statistics(), loaded.Statistics)

			c2, tr2, err := loaded.Restore(log)
			require.NoError(t, err)

			want, err := tr.Transform(ds)
			require.NoError(t, err)
			got, err := tr2.Transform(ds)
			require.NoError(t, err)
			assert.Equal(t, want.Names(), got.Names())

			p1, err := c.PredictProbability(want)
			require.NoError(t, err)
			p2, err := c2.PredictProbability(got)
			require.NoError(t, err)
			assert.InDeltaSlice(t, p1, p2, 1e-12)
		})
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	c, tr, _ := fitted(t)
	b, err := NewBundle(c, tr)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, "m.json"), b, zaptest.NewLogger(t)))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "m.json", entries[0].Name())
}

func TestLoadNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	_, err := Load(path, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, path, e.Detail("path"))
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	_, err := Load(path, zaptest.NewLogger(t))
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99}`), 0o600))
	_, err = Load(path, zaptest.NewLogger(t))
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestNewBundleRequiresFitted(t *testing.T) {
	c, _, _ := fitted(t)
	_, err := NewBundle(c, features.New())
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFitted))

	unfitted, err := classifier.New(classifier.KindLogisticRegression, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, tr, _ := fitted(t)
	_, err = NewBundle(unfitted, tr)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFitted))
}
