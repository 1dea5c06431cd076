package evaluation

// Decision is the outcome of comparing a candidate model to the baseline.
type Decision string

const (
	// DecisionMerge means the candidate is a clear improvement.
	DecisionMerge Decision = "MERGE"
	// DecisionReview means the improvement is marginal.
	DecisionReview Decision = "REVIEW"
	// DecisionDiscard means the candidate is no better.
	DecisionDiscard Decision = "DISCARD"
)

// Thresholds are the candidate ROC-AUC cut-offs for each decision.
type Thresholds struct {
	Merge  float64 `yaml:"merge" mapstructure:"merge" json:"merge" validate:"gte=0,lte=1"`
	Review float64 `yaml:"review" mapstructure:"review" json:"review" validate:"gte=0,lte=1,ltefield=Merge"`
}

// DefaultThresholds returns merge above 0.90 and review above 0.88.
func DefaultThresholds() Thresholds {
	return Thresholds{Merge: 0.90, Review: 0.88}
}

// Decide maps a candidate ROC-AUC to a decision. Both bounds are exclusive.
func (t Thresholds) Decide(candidateAUC float64) Decision {
	switch {
	case candidateAUC > t.Merge:
		return DecisionMerge
	case candidateAUC > t.Review:
		return DecisionReview
	default:
		return DecisionDiscard
	}
}

// Describe returns a one-line explanation of d.
func (d Decision) Describe() string {
	switch d {
	case DecisionMerge:
		return "significant improvement"
	case DecisionReview:
		return "marginal improvement, needs discussion"
	default:
		return "no improvement over baseline"
	}
}

// Comparison is the result of an experiment run.
type Comparison struct {
	Baseline  *Report  `json:"baseline"`
	Candidate *Report  `json:"candidate"`
	Delta     float64  `json:"roc_auc_delta"`
	Decision  Decision `json:"decision"`
}

// Compare decides on candidate by its own ROC-AUC and records the change
// against baseline.
func Compare(baseline, candidate *Report, t Thresholds) *Comparison {
	return &Comparison{
		Baseline:  baseline,
		Candidate: candidate,
		Delta:     candidate.Metrics.ROCAUC - baseline.Metrics.ROCAUC,
		Decision:  t.Decide(candidate.Metrics.ROCAUC),
	}
}
