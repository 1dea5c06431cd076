package pipeline

import (
	"context"

	"github.com/Dawood-ML/uv-project-management/pkg/classifier"
	"github.com/Dawood-ML/uv-project-management/pkg/evaluation"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
	"github.com/Dawood-ML/uv-project-management/pkg/modelstore"
	"github.com/Dawood-ML/uv-project-management/pkg/observability"
	"github.com/Dawood-ML/uv-project-management/pkg/runstore"
)

// TrainResult describes a completed training run.
type TrainResult struct {
	RunID     string
	ModelPath string
	Report    *evaluation.Report
}

// Train loads the configured data, drops identifier columns, splits,
// scales, fits the configured model, prints its report and saves the
// bundle to the model path.
func (p *Pipeline) Train(ctx context.Context) (_ *TrainResult, err error) {
	run := runstore.NewRun("train")
	kind := p.cfg.Model.Type
	ctx, span := p.begin(ctx, run, kind)
	defer func() { observability.EndSpan(span, err) }()

	ds, err := p.load(ctx, p.cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	dropped := present(ds, p.cfg.Data.IDColumns)
	s, err := p.split(ctx, ds.Drop(dropped...), p.cfg.Data.Target, p.cfg.Data.PositiveLabel)
	if err != nil {
		return nil, err
	}

	params := classifier.Params(p.cfg.Model.Params)
	t, err := p.fitAndScore(ctx, s, kind, params)
	if err != nil {
		return nil, err
	}
	report := evaluation.NewReport("", kind, t.metrics, p.cfg.Economics)

	err = p.stage(ctx, "save", func(ctx context.Context) error {
		b, err := modelstore.NewBundle(t.classifier, t.transformer)
		if err != nil {
			return err
		}
		b.RunID = run.ID
		b.Target = p.cfg.Data.Target
		b.PositiveLabel = p.cfg.Data.PositiveLabel
		b.DroppedColumns = dropped
		b.Metrics = t.metrics
		return modelstore.Save(p.cfg.Model.Path, b, logger.FromContext(ctx, p.log))
	})
	if err != nil {
		return nil, err
	}
	if err := report.Write(p.out); err != nil {
		return nil, err
	}

	run.ModelType = kind
	run.DataURI = p.cfg.Data.Path
	run.ModelPath = p.cfg.Model.Path
	run.Params = t.classifier.Params()
	run.Metrics = metricMap(t.metrics)
	if err := p.record(ctx, run); err != nil {
		return nil, err
	}
	return &TrainResult{RunID: run.ID, ModelPath: p.cfg.Model.Path, Report: report}, nil
}
