package eval

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"decksage/simgraph/internal/config"
	"decksage/simgraph/internal/logging"
	"decksage/simgraph/internal/metrics"
)

// RankFunc produces up to k predictions for query. ok is false when the
// query is outside the ranking universe, e.g. not in the embedding
// vocabulary; such queries are reported as not evaluated.
type RankFunc func(ctx context.Context, query string, k int) (preds []string, ok bool, err error)

// QueryResult holds the per-query scores.
type QueryResult struct {
	Query       string   `json:"query"`
	Evaluated   bool     `json:"evaluated"`
	Predictions []string `json:"predictions,omitempty"`
	Precision   float64  `json:"precision_at_k"`
	RR          float64  `json:"reciprocal_rank"`
	Recall      float64  `json:"recall_at_k"`
	NDCG        float64  `json:"ndcg_at_k"`
}

// Summary aggregates a harness run. Means are taken over evaluated queries
// only; Coverage says how many that was.
type Summary struct {
	K            int           `json:"k"`
	Queries      int           `json:"queries"`
	Evaluated    int           `json:"evaluated"`
	NotEvaluated []string      `json:"not_evaluated,omitempty"`
	Coverage     float64       `json:"coverage"`
	PrecisionAtK float64       `json:"precision_at_k"`
	MRR          float64       `json:"mrr"`
	RecallAtK    float64       `json:"recall_at_k"`
	NDCGAtK      float64       `json:"ndcg_at_k"`
	Chunks       int           `json:"chunks"`
	Elapsed      time.Duration `json:"elapsed"`
	Results      []QueryResult `json:"results"`
}

// Harness evaluates a test set in fixed-size chunks of queries. Chunking
// bounds the work in flight; it never changes the numbers.
type Harness struct {
	K         int
	ChunkSize int
	Workers   int
	Metrics   *metrics.Metrics

	log zerolog.Logger
}

func NewHarness(cfg config.EvalConfig, m *metrics.Metrics) *Harness {
	return &Harness{
		K:         cfg.K,
		ChunkSize: cfg.ChunkSize,
		Workers:   cfg.Workers,
		Metrics:   m,
		log:       logging.Component("eval"),
	}
}

// Run ranks every query of ts with rank and scores the predictions.
func (h *Harness) Run(ctx context.Context, ts *TestSet, rank RankFunc) (*Summary, error) {
	if h.K <= 0 {
		return nil, fmt.Errorf("eval: k must be positive, got %d", h.K)
	}
	chunk := h.ChunkSize
	if chunk <= 0 {
		chunk = 25
	}
	workers := h.Workers
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()
	queries := ts.QueryNames()
	results := make([]QueryResult, len(queries))
	nChunks := (len(queries) + chunk - 1) / chunk

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var done int32

	for lo := 0; lo < len(queries); lo += chunk {
		lo := lo // per-iteration copy (go 1.21 loop semantics)
		hi := min(lo+chunk, len(queries))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := h.evalQuery(gctx, queries[i], ts.Queries[queries[i]], rank)
				if err != nil {
					return err
				}
				results[i] = res
				h.Metrics.EvalQuery(res.Evaluated)
			}
			n := atomic.AddInt32(&done, 1)
			h.log.Debug().Int32("chunk", n).Int("of", nChunks).Int("queries", hi-lo).Msg("chunk evaluated")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := summarize(h.K, results)
	s.Chunks = nChunks
	s.Elapsed = time.Since(start)
	h.log.Info().
		Int("queries", s.Queries).
		Int("evaluated", s.Evaluated).
		Float64("coverage", s.Coverage).
		Float64("p_at_k", s.PrecisionAtK).
		Float64("mrr", s.MRR).
		Dur("elapsed", s.Elapsed).
		Msg("evaluation complete")
	return s, nil
}

func (h *Harness) evalQuery(ctx context.Context, query string, gb GradedBuckets, rank RankFunc) (QueryResult, error) {
	preds, ok, err := rank(ctx, query, h.K)
	if err != nil {
		return QueryResult{}, fmt.Errorf("ranking %q: %w", query, err)
	}
	if !ok {
		return QueryResult{Query: query}, nil
	}
	if len(preds) > h.K {
		preds = preds[:h.K]
	}
	return QueryResult{
		Query:       query,
		Evaluated:   true,
		Predictions: preds,
		Precision:   PrecisionAtK(preds, gb, h.K),
		RR:          ReciprocalRank(preds, gb),
		Recall:      RecallAtK(preds, gb, h.K),
		NDCG:        NDCGAtK(preds, gb, h.K),
	}, nil
}

// summarize folds query-sorted results so the sums are order-stable.
func summarize(k int, results []QueryResult) *Summary {
	s := &Summary{K: k, Queries: len(results), Results: results}
	for _, r := range results {
		if !r.Evaluated {
			s.NotEvaluated = append(s.NotEvaluated, r.Query)
			continue
		}
		s.Evaluated++
		s.PrecisionAtK += r.Precision
		s.MRR += r.RR
		s.RecallAtK += r.Recall
		s.NDCGAtK += r.NDCG
	}
	if s.Queries > 0 {
		s.Coverage = float64(s.Evaluated) / float64(s.Queries)
	}
	if s.Evaluated > 0 {
		n := float64(s.Evaluated)
		s.PrecisionAtK /= n
		s.MRR /= n
		s.RecallAtK /= n
		s.NDCGAtK /= n
	}
	return s
}
