package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Dawood-ML/uv-project-management/pkg/classifier"
	"github.com/Dawood-ML/uv-project-management/pkg/evaluation"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
	"github.com/Dawood-ML/uv-project-management/pkg/observability"
	"github.com/Dawood-ML/uv-project-management/pkg/runstore"
)

// Models compared by Experiment.
const (
	BaselineModel  = classifier.KindRandomForest
	CandidateModel = classifier.KindGradientBoosting
)

// Experiment fits the baseline and the candidate on the same split and
// decides on the candidate by its ROC-AUC against the configured
// thresholds. When the configured model type is one of the two, its
// parameters are used for that model; the other uses its defaults.
func (p *Pipeline) Experiment(ctx context.Context) (_ *evaluation.Comparison, err error) {
	run := runstore.NewRun("experiment")
	ctx, span := p.begin(ctx, run, CandidateModel)
	defer func() { observability.EndSpan(span, err) }()

	ds, err := p.load(ctx, p.cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	s, err := p.split(ctx, ds.Drop(present(ds, p.cfg.Data.IDColumns)...), p.cfg.Data.Target, p.cfg.Data.PositiveLabel)
	if err != nil {
		return nil, err
	}

	reports := make(map[string]*evaluation.Report, 2)
	for _, kind := range []string{BaselineModel, CandidateModel} {
		t, err := p.fitAndScore(ctx, s, kind, p.paramsFor(kind))
		if err != nil {
			return nil, err
		}
		reports[kind] = evaluation.NewReport(p.title(kind), kind, t.metrics, p.cfg.Economics)
	}

	cmp := evaluation.Compare(reports[BaselineModel], reports[CandidateModel], p.cfg.Experiment)
	for _, kind := range []string{BaselineModel, CandidateModel} {
		if err := reports[kind].Write(p.out); err != nil {
			return nil, err
		}
	}
	if _, err := fmt.Fprintf(p.out, "\nDecision: ROC AUC = %.4f (%+.4f vs baseline)\n%s - %s\n",
		cmp.Candidate.Metrics.ROCAUC, cmp.Delta, cmp.Decision, cmp.Decision.Describe()); err != nil {
		return nil, err
	}
	logger.FromContext(ctx, p.log).Info("experiment decided",
		zap.String("decision", string(cmp.Decision)),
		zap.Float64("candidate_roc_auc", cmp.Candidate.Metrics.ROCAUC),
		zap.Float64("baseline_roc_auc", cmp.Baseline.Metrics.ROCAUC))

	run.ModelType = CandidateModel
	run.DataURI = p.cfg.Data.Path
	run.Params = p.paramsFor(CandidateModel)
	run.Metrics = metricMap(cmp.Candidate.Metrics)
	run.Metrics["baseline_roc_auc"] = cmp.Baseline.Metrics.ROCAUC
	run.Metrics["roc_auc_delta"] = cmp.Delta
	run.Decision = string(cmp.Decision)
	if err := p.record(ctx, run); err != nil {
		return nil, err
	}
	return cmp, nil
}

func (p *Pipeline) paramsFor(kind string) classifier.Params {
	if p.cfg.Model.Type == kind {
		return classifier.Params(p.cfg.Model.Params)
	}
	return nil
}

func (p *Pipeline) title(kind string) string {
	if kind == BaselineModel {
		return "BASELINE: " + kind
	}
	return "CANDIDATE: " + kind
}
