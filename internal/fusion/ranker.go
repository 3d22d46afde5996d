// Package fusion combines similarity signals into one ranking by late
// fusion: each provider scores independently and the scores are merged
// with per-signal weights.
package fusion

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"decksage/simgraph/internal/logging"
	"decksage/simgraph/internal/metrics"
	"decksage/simgraph/internal/similarity"
)

// Aggregator selects how per-signal scores are merged.
type Aggregator string

const (
	// AggregatorWeighted sums weight × score.
	AggregatorWeighted Aggregator = "weighted"
	// AggregatorRRF sums weight / (k + rank) over each signal's ordering.
	AggregatorRRF Aggregator = "rrf"
	// AggregatorCombSum is accepted as a name for weighted.
	AggregatorCombSum Aggregator = "combsum"
	// AggregatorCombMax takes the best score among the weighted signals.
	AggregatorCombMax Aggregator = "combmax"
	// AggregatorCombMin takes the worst score among the weighted signals.
	AggregatorCombMin Aggregator = "combmin"
)

// DefaultRRFK is the usual reciprocal-rank-fusion damping constant.
const DefaultRRFK = 60

// DefaultMMRPool bounds how many fused candidates diversification looks at.
const DefaultMMRPool = 100

// ParseAggregator accepts "weighted" (or empty), "combsum" (the same as
// weighted once weights are normalised), "rrf", "combmax" and "combmin".
func ParseAggregator(s string) (Aggregator, error) {
	switch Aggregator(strings.ToLower(s)) {
	case "", AggregatorWeighted, AggregatorCombSum:
		return AggregatorWeighted, nil
	case AggregatorRRF:
		return AggregatorRRF, nil
	case AggregatorCombMax:
		return AggregatorCombMax, nil
	case AggregatorCombMin:
		return AggregatorCombMin, nil
	}
	return "", fmt.Errorf("unknown aggregator %q (want weighted, combsum, rrf, combmax or combmin)", s)
}

// Options configures a Ranker.
type Options struct {
	Aggregator Aggregator
	RRFK       int
	// Exclude drops candidates such as noise cards from the output.
	Exclude func(card string) bool
	// MMRLambda > 0 re-orders the fused list by maximal marginal relevance:
	// each pick maximises score - MMRLambda * (max similarity to the cards
	// already picked).
	MMRLambda float64
	// MMRPool caps the candidates considered by MMR (DefaultMMRPool if 0).
	MMRPool int
	// Diversity measures card-to-card similarity for MMR. It defaults to
	// the registered jaccard provider.
	Diversity similarity.Provider
	Metrics   *metrics.Metrics
}

// Ranking is the fused result for one query.
type Ranking struct {
	Query string `json:"query"`
	// Queries is set for multi-query rankings.
	Queries []string            `json:"queries,omitempty"`
	Items   []similarity.Scored `json:"items"`
	// Weights are the normalised weights actually applied.
	Weights     Weights  `json:"weights"`
	Unavailable []string `json:"unavailable,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Names returns the ranked card names.
func (r Ranking) Names() []string {
	out := make([]string, len(r.Items))
	for i, it := range r.Items {
		out[i] = it.Name
	}
	return out
}

// Available reports whether at least one weighted signal had data.
func (r Ranking) Available() bool {
	return len(r.Weights) > 0
}

// Ranker holds the registered providers. Register everything before
// calling Rank; Rank itself is safe for concurrent use.
type Ranker struct {
	providers map[string]similarity.Provider
	agg       Aggregator
	rrfK      int
	exclude   func(string) bool
	mmrLambda float64
	mmrPool   int
	diversity similarity.Provider
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewRanker(opts Options) *Ranker {
	agg := opts.Aggregator
	if agg == "" {
		agg = AggregatorWeighted
	}
	k := opts.RRFK
	if k <= 0 {
		k = DefaultRRFK
	}
	pool := opts.MMRPool
	if pool <= 0 {
		pool = DefaultMMRPool
	}
	return &Ranker{
		providers: make(map[string]similarity.Provider),
		agg:       agg,
		rrfK:      k,
		exclude:   opts.Exclude,
		mmrLambda: opts.MMRLambda,
		mmrPool:   pool,
		diversity: opts.Diversity,
		metrics:   opts.Metrics,
		log:       logging.Component("fusion"),
	}
}

// Register adds p under p.Name(), replacing any provider of that name.
func (r *Ranker) Register(p similarity.Provider) {
	r.providers[p.Name()] = p
}

// Signals lists the registered provider names.
func (r *Ranker) Signals() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Rank fuses the weighted signals for query and returns at most topK
// candidates (all when topK <= 0).
//
// Weights are renormalised over the signals that have data for the query.
// A candidate missing from one signal's output contributes 0 for it. When
// no weighted signal is available the ranking is empty.
func (r *Ranker) Rank(query string, weights Weights, topK int) Ranking {
	start := time.Now()
	defer r.metrics.ObserveRank(string(r.agg), start)

	out, fused := r.fuse(query, weights, func(c string) bool { return c == query })
	if fused != nil {
		out.Items, out.Warnings = r.selectTop(similarity.FromMap(fused, nil), topK, out.Warnings)
	}
	r.logWarnings(out)
	return out
}

// RankMulti ranks candidates against several query cards at once. Each
// query is fused on its own; a candidate's score is the mean of its fused
// scores over the queries that had data and scored it. None of the queries
// is returned as a candidate. The applied weights are the mean of the
// per-query normalised weights.
func (r *Ranker) RankMulti(queries []string, weights Weights, topK int) Ranking {
	start := time.Now()
	defer r.metrics.ObserveRank(string(r.agg), start)

	out := Ranking{Query: strings.Join(queries, " + "), Queries: queries, Weights: Weights{}}
	isQuery := make(map[string]bool, len(queries))
	for _, q := range queries {
		isQuery[q] = true
	}
	skip := func(c string) bool { return isQuery[c] }

	sums := make(map[string]float64)
	hits := make(map[string]int)
	unavailable := make(map[string]bool)
	warnings := make(map[string]bool)
	available := 0
	for _, q := range queries {
		one, fused := r.fuse(q, weights, skip)
		for _, u := range one.Unavailable {
			unavailable[u] = true
		}
		for _, w := range one.Warnings {
			warnings[w] = true
		}
		if fused == nil {
			continue
		}
		available++
		for name, w := range one.Weights {
			out.Weights[name] += w
		}
		for c, s := range fused {
			sums[c] += s
			hits[c]++
		}
	}
	for name := range out.Weights {
		out.Weights[name] /= float64(max(available, 1))
	}
	out.Unavailable = sortedKeys(unavailable)
	out.Warnings = sortedKeys(warnings)

	if available > 0 {
		mean := make(map[string]float64, len(sums))
		for c, s := range sums {
			mean[c] = s / float64(hits[c])
		}
		out.Items, out.Warnings = r.selectTop(similarity.FromMap(mean, nil), topK, out.Warnings)
	}
	r.logWarnings(out)
	return out
}

// fuse merges the weighted signals for one query. It returns a nil map when
// no weighted signal is available; candidates matching skip or the exclude
// predicate are dropped.
func (r *Ranker) fuse(query string, weights Weights, skip func(string) bool) (Ranking, map[string]float64) {
	out := Ranking{Query: query, Weights: Weights{}}

	outputs := make(map[string]map[string]float64)
	for _, name := range weights.Names() {
		w := weights[name]
		p, ok := r.providers[name]
		switch {
		case !ok:
			out.Warnings = append(out.Warnings, fmt.Sprintf("signal %q is not registered; ignored", name))
			continue
		case w < 0:
			out.Warnings = append(out.Warnings, fmt.Sprintf("signal %q has negative weight %.3f; ignored", name, w))
			continue
		case math.IsNaN(w) || math.IsInf(w, 0):
			out.Warnings = append(out.Warnings, fmt.Sprintf("signal %q has non-finite weight; ignored", name))
			continue
		case w == 0:
			continue
		}
		scores, ok := p.ScoreAll(query)
		if !ok {
			out.Unavailable = append(out.Unavailable, name)
			r.metrics.Unavailable(name)
			continue
		}
		outputs[name] = scores
	}

	norm := weights.Normalize(func(s string) bool {
		_, ok := outputs[s]
		return ok
	})
	if len(norm) == 0 {
		if len(weights) > 0 && len(out.Unavailable) == 0 {
			out.Warnings = append(out.Warnings, "no usable signal weights; ranking is empty")
		}
		return out, nil
	}
	out.Weights = norm

	keep := func(c string) bool {
		return c != query && !skip(c) && (r.exclude == nil || !r.exclude(c))
	}
	switch r.agg {
	case AggregatorRRF:
		fused := make(map[string]float64)
		for name, scores := range outputs {
			w := norm[name]
			for rank, it := range similarity.FromMap(scores, keep) {
				fused[it.Name] += w / float64(r.rrfK+rank+1)
			}
		}
		return out, fused
	case AggregatorCombMax, AggregatorCombMin:
		return out, combine(outputs, keep, r.agg == AggregatorCombMax)
	default:
		fused := make(map[string]float64)
		for name, scores := range outputs {
			w := norm[name]
			for c, s := range scores {
				if keep(c) {
					fused[c] += w * s
				}
			}
		}
		return out, fused
	}
}

// combine takes the max (or min) score over the available signals for every
// candidate any of them scored. Weights only gate which signals take part;
// a signal that did not score a candidate counts as 0 for it.
func combine(outputs map[string]map[string]float64, keep func(string) bool, takeMax bool) map[string]float64 {
	candidates := make(map[string]struct{})
	for _, scores := range outputs {
		for c := range scores {
			if keep(c) {
				candidates[c] = struct{}{}
			}
		}
	}
	fused := make(map[string]float64, len(candidates))
	for c := range candidates {
		first := true
		var v float64
		for _, scores := range outputs {
			s := scores[c]
			switch {
			case first:
				v, first = s, false
			case takeMax:
				v = max(v, s)
			default:
				v = min(v, s)
			}
		}
		fused[c] = v
	}
	return fused
}

// selectTop truncates the sorted fused list to topK, diversifying first
// when MMR is enabled.
func (r *Ranker) selectTop(items []similarity.Scored, topK int, warnings []string) ([]similarity.Scored, []string) {
	if r.mmrLambda > 0 {
		div := r.diversity
		if div == nil {
			div = r.providers[similarity.SignalJaccard]
		}
		if div != nil {
			return r.diversify(items, topK, div), warnings
		}
		warnings = append(warnings, "mmr requested but no diversity signal is registered; ranking left undiversified")
	}
	if topK > 0 && len(items) > topK {
		items = items[:topK]
	}
	return items, warnings
}

// diversify greedily picks up to topK items from the head of the sorted
// list. Items keep their fused score; the order is the pick order.
func (r *Ranker) diversify(items []similarity.Scored, topK int, div similarity.Provider) []similarity.Scored {
	n := topK
	if n <= 0 || n > len(items) {
		n = len(items)
	}
	remaining := slices.Clone(items[:min(len(items), max(r.mmrPool, n))])
	picked := make([]similarity.Scored, 0, n)
	for len(picked) < n && len(remaining) > 0 {
		best, bestScore := 0, math.Inf(-1)
		for i, c := range remaining {
			penalty := 0.0
			for _, p := range picked {
				if sim, ok := div.Score(c.Name, p.Name); ok {
					penalty = max(penalty, sim)
				}
			}
			if v := c.Score - r.mmrLambda*penalty; v > bestScore {
				best, bestScore = i, v
			}
		}
		picked = append(picked, remaining[best])
		remaining = slices.Delete(remaining, best, best+1)
	}
	return picked
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Ranker) logWarnings(out Ranking) {
	for _, w := range out.Warnings {
		r.log.Warn().Str("query", out.Query).Msg(w)
	}
	if len(out.Unavailable) > 0 {
		r.log.Debug().Str("query", out.Query).Strs("unavailable", out.Unavailable).Msg("signals without data")
	}
}

// Breakdown returns every registered signal's score for one pair. Signals
// without data for the pair are left out.
func (r *Ranker) Breakdown(query, candidate string) map[string]float64 {
	out := make(map[string]float64, len(r.providers))
	for name, p := range r.providers {
		if s, ok := p.Score(query, candidate); ok {
			out[name] = s
		}
	}
	return out
}
