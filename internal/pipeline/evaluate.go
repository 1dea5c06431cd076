package pipeline

import (
	"context"

	"github.com/Dawood-ML/uv-project-management/pkg/classifier"
	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/evaluation"
	"github.com/Dawood-ML/uv-project-management/pkg/features"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
	"github.com/Dawood-ML/uv-project-management/pkg/modelstore"
	"github.com/Dawood-ML/uv-project-management/pkg/observability"
	"github.com/Dawood-ML/uv-project-management/pkg/runstore"
)

// loaded is a restored bundle ready for inference.
type loaded struct {
	bundle      *modelstore.Bundle
	classifier  *classifier.Classifier
	transformer *features.Transformer
}

func (p *Pipeline) loadModel(ctx context.Context, path string) (*loaded, error) {
	var m loaded
	err := p.stage(ctx, "load_model", func(ctx context.Context) error {
		log := logger.FromContext(ctx, p.log)
		b, err := modelstore.Load(path, log)
		if err != nil {
			return err
		}
		m.bundle = b
		m.classifier, m.transformer, err = b.Restore(log)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Evaluate scores the saved model on the held-out split of the configured
// data. The split is recomputed with the configured seed and test size, so
// with an unchanged configuration it is the split the model never saw.
func (p *Pipeline) Evaluate(ctx context.Context) (_ *evaluation.Report, err error) {
	run := runstore.NewRun("evaluate")
	m, err := p.loadModel(ctx, p.cfg.Model.Path)
	if err != nil {
		return nil, err
	}
	kind := m.classifier.Kind()
	ctx, span := p.begin(ctx, run, kind)
	defer func() { observability.EndSpan(span, err) }()

	ds, err := p.load(ctx, p.cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	s, err := p.split(ctx, ds.Drop(m.bundle.DroppedColumns...), m.bundle.Target, m.bundle.PositiveLabel)
	if err != nil {
		return nil, err
	}

	var testX *dataset.Dataset
	err = p.stage(ctx, "transform", func(context.Context) error {
		var err error
		testX, err = m.transformer.Transform(s.TestX)
		return err
	})
	if err != nil {
		return nil, err
	}

	var scores *evaluation.Metrics
	err = p.stage(ctx, "evaluate", func(context.Context) error {
		var err error
		scores, err = evaluation.Evaluate(m.classifier, testX, s.TestY)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := evaluation.NewReport("", kind, scores, p.cfg.Economics)
	if err := report.Write(p.out); err != nil {
		return nil, err
	}

	run.ModelType = kind
	run.DataURI = p.cfg.Data.Path
	run.ModelPath = p.cfg.Model.Path
	run.Params = m.classifier.Params()
	run.Metrics = metricMap(scores)
	if err := p.record(ctx, run); err != nil {
		return nil, err
	}
	return report, nil
}
