package classifier

import (
	"math"
	"sort"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

// Params holds numeric hyperparameters by name, as read from config.
type Params map[string]float64

// Int returns the parameter as an int, or def when unset.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		return int(math.Round(v))
	}
	return def
}

// Float returns the parameter, or def when unset.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Bool returns true for any non-zero value, or def when unset.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key]; ok {
		return v != 0
	}
	return def
}

func (p Params) clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// allow returns a config error naming every key not in allowed.
func (p Params) allow(kind string, allowed ...string) error {
	ok := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		ok[a] = struct{}{}
	}
	var unknown []string
	for k := range p {
		if _, found := ok[k]; !found {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errors.Configuration("unknown model parameters").
		WithDetail("model_type", kind).
		WithDetail("parameters", unknown)
}

func positive(kind, key string, v int) error {
	if v <= 0 {
		return errors.Configuration("model parameter must be positive").
			WithDetail("model_type", kind).
			WithDetail("parameter", key).
			WithDetail("value", v)
	}
	return nil
}
