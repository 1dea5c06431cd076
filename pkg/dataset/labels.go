package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

// Labels converts the target column into binary class labels: 1 where the
// value equals positive, 0 elsewhere. For numeric targets an empty positive
// means "any non-zero value". For categorical targets an empty positive
// defaults to "1" and the comparison ignores case.
func Labels(d *Dataset, target, positive string) ([]int, error) {
	c, ok := d.Column(target)
	if !ok {
		return nil, errors.SchemaMismatch([]string{target}, nil, nil)
	}

	out := make([]int, d.Rows())
	switch c.Kind {
	case Numeric:
		var want float64
		anyNonZero := positive == ""
		if !anyNonZero {
			p, err := strconv.ParseFloat(positive, 64)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeConfig, "positive label is not numeric").
					WithDetail("positive_label", positive).
					WithDetail("column", target)
			}
			want = p
		}
		for i, v := range c.Numbers {
			if math.IsNaN(v) {
				return nil, errors.New(errors.ErrorTypeData, "target column has missing values").
					WithDetail("column", target).
					WithDetail("row", i)
			}
			if (anyNonZero && v != 0) || (!anyNonZero && v == want) {
				out[i] = 1
			}
		}
	default:
		if positive == "" {
			positive = "1"
		}
		for i, v := range c.Labels {
			if c.IsMissing(i) {
				return nil, errors.New(errors.ErrorTypeData, "target column has missing values").
					WithDetail("column", target).
					WithDetail("row", i)
			}
			if strings.EqualFold(v, positive) {
				out[i] = 1
			}
		}
	}
	return out, nil
}

// PositiveRate returns the fraction of labels equal to 1, or 0 for no labels.
func PositiveRate(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	var pos int
	for _, l := range labels {
		pos += l
	}
	return float64(pos) / float64(len(labels))
}
