package pipeline

import (
	"context"
	"math/rand"

	"go.uber.org/zap"

	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/errors"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
)

// Synthetic data defaults.
const (
	DefaultSyntheticRows = 1000
	DefaultSyntheticSeed = 42
	SyntheticChurnRate   = 0.3
)

// Synthetic builds n demo customers with independent uniform features and
// a Bernoulli(0.3) Churn label. The same seed always gives the same rows.
func Synthetic(n int, seed int64) (*dataset.Dataset, error) {
	if n < 1 {
		return nil, errors.New(errors.ErrorTypeConfig, "row count must be positive").WithDetail("rows", n)
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // demo data

	var (
		ids      = make([]float64, n)
		age      = make([]float64, n)
		tenure   = make([]float64, n)
		monthly  = make([]float64, n)
		total    = make([]float64, n)
		products = make([]float64, n)
		churn    = make([]float64, n)
	)
	for i := 0; i < n; i++ {
		ids[i] = float64(i + 1)
		age[i] = float64(18 + rng.Intn(52))
		tenure[i] = float64(rng.Intn(120))
		monthly[i] = 20 + 100*rng.Float64()
		total[i] = 100 + 7900*rng.Float64()
		products[i] = float64(1 + rng.Intn(4))
		if rng.Float64() < SyntheticChurnRate {
			churn[i] = 1
		}
	}
	return dataset.New(
		dataset.NumericColumn("CustomerID", ids),
		dataset.NumericColumn("Age", age),
		dataset.NumericColumn("Tenure", tenure),
		dataset.NumericColumn("MonthlyCharges", monthly),
		dataset.NumericColumn("TotalCharges", total),
		dataset.NumericColumn("NumProducts", products),
		dataset.NumericColumn("Churn", churn),
	)
}

// Generate writes Synthetic(n, seed) as CSV to path, creating parent
// directories.
func (p *Pipeline) Generate(ctx context.Context, path string, n int, seed int64) error {
	return p.stage(ctx, "generate", func(ctx context.Context) error {
		ds, err := Synthetic(n, seed)
		if err != nil {
			return err
		}
		if err := dataset.SaveCSV(path, ds); err != nil {
			return err
		}
		logger.FromContext(ctx, p.log).Info("created synthetic data",
			zap.String("path", path),
			zap.Int("rows", n),
			zap.Int64("seed", seed))
		return nil
	})
}
