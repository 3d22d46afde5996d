package fusion

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Weights maps a signal name to its non-negative fusion weight.
type Weights map[string]float64

// Normalize keeps the positive, finite weights of available signals and
// rescales them to sum to 1. It returns an empty map when nothing remains.
func (w Weights) Normalize(available func(signal string) bool) Weights {
	usable := func(name string, v float64) bool {
		return v > 0 && !math.IsInf(v, 0) && (available == nil || available(name))
	}
	total := 0.0
	for name, v := range w {
		if usable(name, v) {
			total += v
		}
	}
	out := make(Weights)
	if total == 0 || math.IsInf(total, 0) {
		return out
	}
	for name, v := range w {
		if usable(name, v) {
			out[name] = v / total
		}
	}
	return out
}

// Sum adds all weights.
func (w Weights) Sum() float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

// Names returns the signal names in ascending order.
func (w Weights) Names() []string {
	names := make([]string, 0, len(w))
	for n := range w {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (w Weights) String() string {
	parts := make([]string, 0, len(w))
	for _, n := range w.Names() {
		parts = append(parts, fmt.Sprintf("%s=%.3f", n, w[n]))
	}
	return strings.Join(parts, ",")
}

// ParseWeights reads "name=value" pairs as given on the command line.
func ParseWeights(pairs []string) (Weights, error) {
	w := make(Weights, len(pairs))
	for _, p := range pairs {
		name, val, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("weight %q: want name=value", p)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", p, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("weight %q: must be a finite number", p)
		}
		if f < 0 {
			return nil, fmt.Errorf("weight %q: must be non-negative", p)
		}
		w[name] = f
	}
	return w, nil
}
