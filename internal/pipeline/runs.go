package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Dawood-ML/uv-project-management/pkg/runstore"
)

// Runs prints up to limit recorded runs, newest first.
func (p *Pipeline) Runs(ctx context.Context, limit int) ([]*runstore.Run, error) {
	runs, err := p.runs.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(p.out, "no runs recorded")
		return runs, err
	}

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSTARTED\tDURATION\tMODEL\tDECISION\tMETRICS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Kind, r.StartedAt.Format(time.RFC3339),
			r.Duration.Round(time.Millisecond), r.ModelType, dash(r.Decision), formatMetrics(r.Metrics))
	}
	return runs, w.Flush()
}

func formatMetrics(m map[string]float64) string {
	if len(m) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.4f", k, m[k])
	}
	return strings.Join(parts, " ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
