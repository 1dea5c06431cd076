// Package pipeline runs the churn workflow end to end: loading, splitting,
// feature scaling, fitting, evaluation, persistence and run bookkeeping.
//
// # Stages
//
// Every command is a sequence of named stages (load, split, transform,
// fit, evaluate, save, ...). Each stage runs inside its own trace span,
// is timed into the stage duration histogram, and logs with the run id,
// stage and model type taken from the context.
//
// # Basic Usage
//
//	cfg, _ := config.Load("churn.yaml")
//	p := pipeline.New(cfg, logger, pipeline.WithRunStore(store))
//	res, err := p.Train(ctx)
package pipeline

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Dawood-ML/uv-project-management/pkg/classifier"
	"github.com/Dawood-ML/uv-project-management/pkg/config"
	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/evaluation"
	"github.com/Dawood-ML/uv-project-management/pkg/features"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
	"github.com/Dawood-ML/uv-project-management/pkg/metrics"
	"github.com/Dawood-ML/uv-project-management/pkg/observability"
	"github.com/Dawood-ML/uv-project-management/pkg/runstore"
	"github.com/Dawood-ML/uv-project-management/pkg/source"
)

// Pipeline executes commands against one configuration.
type Pipeline struct {
	cfg    *config.Config
	log    *zap.Logger
	source *source.Opener
	runs   runstore.Store
	out    io.Writer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOutput sends reports to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// WithRunStore records runs in s. Without it runs are not kept.
func WithRunStore(s runstore.Store) Option {
	return func(p *Pipeline) { p.runs = s }
}

// WithSource replaces the data opener built from the configuration.
func WithSource(o *source.Opener) Option {
	return func(p *Pipeline) { p.source = o }
}

// New creates a pipeline. A nil log means the global logger.
func New(cfg *config.Config, log *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg: cfg,
		log: logger.OrGlobal(log),
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.source == nil {
		p.source = source.New(cfg.Source, p.log,
			source.WithCSVOptions(dataset.CSVOptions{Categorical: cfg.Data.Categorical}))
	}
	if p.runs == nil {
		p.runs = runstore.Nop()
	}
	return p
}

// begin annotates ctx with the run and opens the command's root span.
func (p *Pipeline) begin(ctx context.Context, run *runstore.Run, modelType string) (context.Context, trace.Span) {
	ctx = context.WithValue(ctx, logger.RunIDKey, run.ID)
	ctx = context.WithValue(ctx, logger.ModelTypeKey, modelType)
	ctx, span := observability.StartSpan(ctx, run.Kind,
		attribute.String("run_id", run.ID),
		attribute.String("model_type", modelType))
	logger.FromContext(ctx, p.log).Info("run started", zap.String("kind", run.Kind))
	return ctx, span
}

// stage runs fn as a named, traced and timed step.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx = context.WithValue(ctx, logger.StageKey, name)
	ctx, span := observability.StartSpan(ctx, name)
	timer := metrics.NewTimer(name)

	err := fn(ctx)

	elapsed := timer.ObserveDuration()
	observability.EndSpan(span, err)
	log := logger.FromContext(ctx, p.log)
	if err != nil {
		log.Error("stage failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return err
	}
	log.Debug("stage finished", zap.Duration("elapsed", elapsed))
	return nil
}

func (p *Pipeline) load(ctx context.Context, uri string) (*dataset.Dataset, error) {
	var ds *dataset.Dataset
	err := p.stage(ctx, "load", func(ctx context.Context) error {
		var err error
		ds, err = p.source.Load(ctx, uri)
		return err
	})
	return ds, err
}

func (p *Pipeline) split(ctx context.Context, ds *dataset.Dataset, target, positive string) (*dataset.Split, error) {
	var s *dataset.Split
	err := p.stage(ctx, "split", func(ctx context.Context) error {
		var err error
		s, err = dataset.StratifiedSplit(ds, dataset.SplitConfig{
			Target:        target,
			PositiveLabel: positive,
			TestSize:      p.cfg.Data.TestSize,
			Seed:          p.cfg.Data.Seed,
		}, logger.FromContext(ctx, p.log))
		return err
	})
	return s, err
}

// trained is a fitted model with the transformer it was fitted behind.
type trained struct {
	classifier  *classifier.Classifier
	transformer *features.Transformer
	metrics     *evaluation.Metrics
}

// fitAndScore scales the split, fits kind on the training side and scores
// it on the held-out side.
func (p *Pipeline) fitAndScore(ctx context.Context, s *dataset.Split, kind string, params classifier.Params) (*trained, error) {
	log := logger.FromContext(context.WithValue(ctx, logger.ModelTypeKey, kind), p.log)
	t := &trained{transformer: features.New(features.WithLogger(log), features.WithRejectRefit())}

	var trainX, testX *dataset.Dataset
	err := p.stage(ctx, "transform", func(context.Context) error {
		var err error
		if trainX, err = t.transformer.FitTransform(s.TrainX); err != nil {
			return err
		}
		testX, err = t.transformer.Transform(s.TestX)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, "fit", func(context.Context) error {
		var err error
		if t.classifier, err = classifier.New(kind, params, log); err != nil {
			return err
		}
		return t.classifier.Fit(trainX, s.TrainY)
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, "evaluate", func(context.Context) error {
		var err error
		t.metrics, err = evaluation.Evaluate(t.classifier, testX, s.TestY)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.LastROCAUC.WithLabelValues(kind).Set(t.metrics.ROCAUC)
	return t, nil
}

// record finishes run and stores it.
func (p *Pipeline) record(ctx context.Context, run *runstore.Run) error {
	run.Finish()
	return p.stage(ctx, "record", func(ctx context.Context) error {
		if err := p.runs.Record(ctx, run); err != nil {
			return err
		}
		logger.FromContext(ctx, p.log).Info("run recorded",
			zap.String("kind", run.Kind),
			zap.Duration("duration", run.Duration))
		return nil
	})
}

func metricMap(m *evaluation.Metrics) map[string]float64 {
	return map[string]float64{
		"accuracy":  m.Accuracy,
		"precision": m.Precision,
		"recall":    m.Recall,
		"f1":        m.F1,
		"roc_auc":   m.ROCAUC,
	}
}

// present returns the names that are columns of ds, in the given order.
func present(ds *dataset.Dataset, names []string) []string {
	var out []string
	for _, n := range names {
		if ds.Has(n) {
			out = append(out, n)
		}
	}
	return out
}
