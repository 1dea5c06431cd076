package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dawood-ML/uv-project-management/pkg/config"
	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/errors"
	"github.com/Dawood-ML/uv-project-management/pkg/runstore"
	"github.com/Dawood-ML/uv-project-management/pkg/testutil"
)

type fixture struct {
	cfg  *config.Config
	out  *bytes.Buffer
	runs runstore.Store
	p    *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Data.Path = testutil.WriteCSV(t, testutil.ChurnDataset(t, 400, 7), "churn.csv")
	cfg.Model.Path = testutil.TempPath(t, "models", "churn.json.zst")
	cfg.Model.Params = map[string]float64{"n_estimators": 20}

	runs, err := runstore.Open(testutil.TestContext(t), runstore.Config{
		Driver: "sqlite",
		DSN:    testutil.TempPath(t, "runs.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = runs.Close() })

	f := &fixture{cfg: cfg, out: &bytes.Buffer{}, runs: runs}
	f.p = New(cfg, testutil.TestLogger(t), WithOutput(f.out), WithRunStore(runs))
	return f
}

func TestTrainEvaluatePredict(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)

	trained, err := f.p.Train(ctx)
	require.NoError(t, err)
	assert.FileExists(t, f.cfg.Model.Path)
	assert.Greater(t, trained.Report.Metrics.ROCAUC, 0.75)
	assert.Contains(t, f.out.String(), "MODEL EVALUATION RESULTS")
	assert.Contains(t, f.out.String(), "confusion_matrix:")

	evaluated, err := f.p.Evaluate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, trained.Report.Metrics.ROCAUC, evaluated.Metrics.ROCAUC, 1e-12)
	assert.Equal(t, trained.Report.Metrics.Confusion, evaluated.Metrics.Confusion)

	outPath := testutil.TempPath(t, "out", "scored.csv")
	res, err := f.p.Predict(ctx, f.cfg.Data.Path, outPath)
	require.NoError(t, err)
	assert.Equal(t, 400, res.Rows)

	scored := testutil.ReadCSV(t, outPath)
	assert.Equal(t, []string{"CustomerID", "Age", "Tenure", "MonthlyCharges", "Churn",
		PredictionColumn, ProbabilityColumn}, scored.Names())
	pred, _ := scored.Column(PredictionColumn)
	prob, _ := scored.Column(ProbabilityColumn)
	churners := 0
	for i, v := range pred.Numbers {
		assert.Contains(t, []float64{0, 1}, v)
		assert.GreaterOrEqual(t, prob.Numbers[i], 0.0)
		assert.LessOrEqual(t, prob.Numbers[i], 1.0)
		churners += int(v)
	}
	assert.Equal(t, res.Churners, churners)

	runs, err := f.runs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	kinds := []string{runs[0].Kind, runs[1].Kind, runs[2].Kind}
	assert.ElementsMatch(t, []string{"train", "evaluate", "predict"}, kinds)
	for _, r := range runs {
		assert.Equal(t, "random_forest", r.ModelType)
	}
}

func TestPredictRejectsInvalidRows(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	_, err := f.p.Train(ctx)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "incoming.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"CustomerID,Age,Tenure,MonthlyCharges\n"+
			"1,30,,50.5\n"+
			"2,41,12,\n"), 0o600))

	outPath := filepath.Join(t.TempDir(), "scored.csv")
	_, err = f.p.Predict(ctx, path, outPath)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Equal(t, []string{"Tenure", "MonthlyCharges"}, errors.Columns(err))
	assert.NoFileExists(t, outPath)
}

func TestPredictSchemaMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	_, err := f.p.Train(ctx)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "incoming.csv")
	require.NoError(t, os.WriteFile(path, []byte("Age,Tenure\n30,12\n"), 0o600))

	_, err = f.p.Predict(ctx, path, "-")
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaMismatch))
}

func TestEvaluateWithoutModel(t *testing.T) {
	f := newFixture(t)
	_, err := f.p.Evaluate(testutil.TestContext(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestTrainMissingData(t *testing.T) {
	f := newFixture(t)
	f.cfg.Data.Path = filepath.Join(t.TempDir(), "absent.csv")
	_, err := f.p.Train(testutil.TestContext(t))
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestTrainUnknownModel(t *testing.T) {
	f := newFixture(t)
	f.cfg.Model.Type = "svm"
	_, err := f.p.Train(testutil.TestContext(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.NoFileExists(t, f.cfg.Model.Path)

	runs, err := f.runs.List(testutil.TestContext(t), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestExperiment(t *testing.T) {
	f := newFixture(t)
	f.cfg.Model.Type = CandidateModel
	f.cfg.Model.Params = map[string]float64{"n_estimators": 30}
	ctx := testutil.TestContext(t)

	cmp, err := f.p.Experiment(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.cfg.Experiment.Decide(cmp.Candidate.Metrics.ROCAUC), cmp.Decision)
	assert.InDelta(t, cmp.Candidate.Metrics.ROCAUC-cmp.Baseline.Metrics.ROCAUC, cmp.Delta, 1e-12)

	out := f.out.String()
	assert.Contains(t, out, "BASELINE: random_forest")
	assert.Contains(t, out, "CANDIDATE: gradient_boosting")
	assert.Contains(t, out, "Decision: ROC AUC = ")
	assert.Contains(t, out, string(cmp.Decision)+" - "+cmp.Decision.Describe())

	runs, err := f.runs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "experiment", runs[0].Kind)
	assert.Equal(t, string(cmp.Decision), runs[0].Decision)
	assert.Equal(t, map[string]float64{"n_estimators": 30}, runs[0].Params)
	assert.InDelta(t, cmp.Baseline.Metrics.ROCAUC, runs[0].Metrics["baseline_roc_auc"], 1e-12)
}

func TestSynthetic(t *testing.T) {
	a, err := Synthetic(DefaultSyntheticRows, DefaultSyntheticSeed)
	require.NoError(t, err)
	b, err := Synthetic(DefaultSyntheticRows, DefaultSyntheticSeed)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, []string{"CustomerID", "Age", "Tenure", "MonthlyCharges",
		"TotalCharges", "NumProducts", "Churn"}, a.Names())

	bounds := map[string][2]float64{
		"Age":            {18, 70},
		"Tenure":         {0, 120},
		"MonthlyCharges": {20, 120},
		"TotalCharges":   {100, 8000},
		"NumProducts":    {1, 5},
	}
	for name, r := range bounds {
		col, ok := a.Column(name)
		require.True(t, ok)
		for _, v := range col.Numbers {
			assert.GreaterOrEqual(t, v, r[0], name)
			assert.Less(t, v, r[1], name)
		}
	}

	churn, _ := a.Column("Churn")
	labels, err := dataset.Labels(a, "Churn", "")
	require.NoError(t, err)
	assert.Len(t, labels, len(churn.Numbers))
	assert.InDelta(t, SyntheticChurnRate, dataset.PositiveRate(labels), 0.05)

	_, err = Synthetic(0, 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestGenerateThenTrain(t *testing.T) {
	f := newFixture(t)
	path := testutil.TempPath(t, "data", "synthetic.csv")
	require.NoError(t, f.p.Generate(testutil.TestContext(t), path, 300, 1))

	ds := testutil.ReadCSV(t, path)
	assert.Equal(t, 300, ds.Rows())

	f.cfg.Data.Path = path
	_, err := f.p.Train(testutil.TestContext(t))
	require.NoError(t, err)
}

func TestRuns(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)

	runs, err := f.p.Runs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Contains(t, f.out.String(), "no runs recorded")

	_, err = f.p.Train(ctx)
	require.NoError(t, err)
	f.out.Reset()

	runs, err = f.p.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	out := f.out.String()
	assert.Contains(t, out, runs[0].ID)
	assert.Contains(t, out, "roc_auc=")
	assert.Contains(t, out, "KIND")
}

func TestDefaultRunStoreKeepsNoHistory(t *testing.T) {
	f := newFixture(t)
	var out bytes.Buffer
	p := New(f.cfg, testutil.TestLogger(t), WithOutput(&out))
	ctx := testutil.TestContext(t)

	_, err := p.Train(ctx)
	require.NoError(t, err)

	runs, err := p.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Contains(t, out.String(), "no runs recorded")
}
