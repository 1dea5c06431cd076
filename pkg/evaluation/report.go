package evaluation

import (
	"fmt"
	"io"
	"strings"
)

const bannerWidth = 50

// Report is everything printed after an evaluation.
type Report struct {
	Title    string           `json:"title"`
	Model    string           `json:"model_type"`
	Metrics  *Metrics         `json:"metrics"`
	Business *BusinessSummary `json:"business,omitempty"`
}

// NewReport prices m with econ and bundles the result.
func NewReport(title, model string, m *Metrics, econ Economics) *Report {
	s := econ.Summarize(m.Confusion)
	return &Report{Title: title, Model: model, Metrics: m, Business: &s}
}

// Write prints the report as a fixed-width table.
func (r *Report) Write(w io.Writer) error {
	var b strings.Builder
	banner := strings.Repeat("=", bannerWidth)

	title := r.Title
	if title == "" {
		title = "MODEL EVALUATION RESULTS"
	}
	fmt.Fprintf(&b, "\n%s\n%s\n%s\n", banner, title, banner)
	if r.Model != "" {
		fmt.Fprintf(&b, "%15s: %s\n", "model", r.Model)
	}
	m := r.Metrics
	for _, row := range []struct {
		name  string
		value float64
	}{
		{"accuracy", m.Accuracy},
		{"precision", m.Precision},
		{"recall", m.Recall},
		{"f1", m.F1},
		{"roc_auc", m.ROCAUC},
	} {
		fmt.Fprintf(&b, "%15s: %.4f\n", row.name, row.value)
	}

	cm := m.Confusion
	fmt.Fprintf(&b, "\nconfusion_matrix:\n[[%d %d]\n [%d %d]]\n", cm.TN, cm.FP, cm.FN, cm.TP)

	if s := r.Business; s != nil {
		fmt.Fprintf(&b, "\n%15s: %.2f\n", "retained", s.RetainedRevenue)
		fmt.Fprintf(&b, "%15s: %.2f\n", "wasted_spend", s.WastedSpend)
		fmt.Fprintf(&b, "%15s: %.2f\n", "lost_revenue", s.LostRevenue)
		fmt.Fprintf(&b, "%15s: %.2f\n", "campaign_cost", s.TotalCampaignCost)
		fmt.Fprintf(&b, "%15s: %.4f\n", "roi", s.ROI)
	}
	fmt.Fprintf(&b, "%s\n\n", banner)

	_, err := io.WriteString(w, b.String())
	return err
}
