// Package testutil provides helpers shared by the pipeline's tests.
package testutil

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext returns a context with a 30-second timeout that is cancelled
// when the test completes.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TempPath returns path elements joined under a fresh temporary directory.
func TempPath(t *testing.T, elem ...string) string {
	return filepath.Join(append([]string{t.TempDir()}, elem...)...)
}

// ChurnDataset builds n customers in which short-tenure, high-charge
// customers churn, so models can learn the target. Roughly one row in twenty
// has its label flipped to keep ROC-AUC below 1.
func ChurnDataset(t *testing.T, n int, seed int64) *dataset.Dataset {
	t.Helper()
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // test data

	var (
		ids     = make([]float64, n)
		age     = make([]float64, n)
		tenure  = make([]float64, n)
		charges = make([]float64, n)
		churn   = make([]float64, n)
	)
	for i := 0; i < n; i++ {
		ids[i] = float64(i + 1)
		age[i] = float64(18 + rng.Intn(52))
		tenure[i] = float64(rng.Intn(120))
		charges[i] = 20 + rng.Float64()*100
		if tenure[i] < 36 && charges[i] > 60 {
			churn[i] = 1
		}
		if rng.Float64() < 0.05 {
			churn[i] = 1 - churn[i]
		}
	}
	ds, err := dataset.New(
		dataset.NumericColumn("CustomerID", ids),
		dataset.NumericColumn("Age", age),
		dataset.NumericColumn("Tenure", tenure),
		dataset.NumericColumn("MonthlyCharges", charges),
		dataset.NumericColumn("Churn", churn),
	)
	require.NoError(t, err)
	return ds
}

// WriteCSV saves ds under a temporary directory and returns the path.
func WriteCSV(t *testing.T, ds *dataset.Dataset, name string) string {
	t.Helper()
	path := TempPath(t, name)
	require.NoError(t, dataset.SaveCSV(path, ds))
	return path
}

// ReadCSV parses the CSV file at path.
func ReadCSV(t *testing.T, path string) *dataset.Dataset {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	ds, err := dataset.ReadCSV(f, dataset.CSVOptions{})
	require.NoError(t, err)
	return ds
}
