package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
	"github.com/Dawood-ML/uv-project-management/pkg/metrics"
	"github.com/Dawood-ML/uv-project-management/pkg/observability"
	"github.com/Dawood-ML/uv-project-management/pkg/predict"
	"github.com/Dawood-ML/uv-project-management/pkg/runstore"
)

// Output columns appended by Predict.
const (
	PredictionColumn  = "prediction"
	ProbabilityColumn = "probability"
)

// PredictResult summarizes a scoring run.
type PredictResult struct {
	Rows       int
	Churners   int
	OutputPath string
}

// Predict scores the data at inputURI with the saved model and writes the
// input rows with prediction and probability columns appended. An output
// path of "-" writes the CSV to the pipeline's output.
//
// The target and identifier columns are ignored for scoring when present.
// Rows with missing or infinite features fail the whole batch.
func (p *Pipeline) Predict(ctx context.Context, inputURI, outputPath string) (_ *PredictResult, err error) {
	run := runstore.NewRun("predict")
	m, err := p.loadModel(ctx, p.cfg.Model.Path)
	if err != nil {
		return nil, err
	}
	ctx, span := p.begin(ctx, run, m.classifier.Kind())
	defer func() { observability.EndSpan(span, err) }()

	ds, err := p.load(ctx, inputURI)
	if err != nil {
		return nil, err
	}
	ignored := append([]string{m.bundle.Target}, m.bundle.DroppedColumns...)

	var X *dataset.Dataset
	err = p.stage(ctx, "transform", func(context.Context) error {
		var err error
		X, err = m.transformer.Transform(ds.Drop(ignored...))
		return err
	})
	if err != nil {
		return nil, err
	}

	var (
		pred []int
		prob []float64
	)
	tracker := metrics.NewThroughputTracker()
	err = p.stage(ctx, "predict", func(context.Context) error {
		var err error
		if pred, err = predict.Safe(m.classifier, X); err != nil {
			return err
		}
		prob, err = predict.SafeProbability(m.classifier, X)
		return err
	})
	if err != nil {
		return nil, err
	}
	tracker.Increment(int64(len(pred)))
	throughput := tracker.GetAndReset()

	res := &PredictResult{Rows: len(pred), OutputPath: outputPath}
	labels := make([]float64, len(pred))
	for i, v := range pred {
		labels[i] = float64(v)
		res.Churners += v
	}

	err = p.stage(ctx, "write", func(context.Context) error {
		out, err := ds.WithColumn(dataset.NumericColumn(PredictionColumn, labels))
		if err != nil {
			return err
		}
		if out, err = out.WithColumn(dataset.NumericColumn(ProbabilityColumn, prob)); err != nil {
			return err
		}
		if outputPath == "-" {
			return dataset.WriteCSV(p.out, out)
		}
		return dataset.SaveCSV(outputPath, out)
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx, p.log).Info("predictions written",
		zap.Int("rows", res.Rows),
		zap.Int("churners", res.Churners),
		zap.Float64("rows_per_second", throughput),
		zap.String("path", outputPath))

	run.ModelType = m.classifier.Kind()
	run.DataURI = inputURI
	run.ModelPath = p.cfg.Model.Path
	run.Metrics = map[string]float64{
		"rows":     float64(res.Rows),
		"churners": float64(res.Churners),
	}
	if err := p.record(ctx, run); err != nil {
		return nil, err
	}
	return res, nil
}
