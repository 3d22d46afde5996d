package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"decksage/simgraph/internal/eval"
)

var (
	evalK          int
	evalChunkSize  int
	evalWorkers    int
	evalWeightArgs []string
	evalSignal     string
	evalAggregator string
	evalPerQuery   bool
	evalJSON       bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <testset.json>",
	Short: "Score rankings against a graded test set (P@k, MRR, recall, nDCG, coverage)",
	Long: `Ranks every query of the test set and scores the predictions against its
graded buckets. Queries no signal has data for are reported as not evaluated
and excluded from the means; coverage shows how many were evaluated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()
		if flags.Changed("k") {
			cfg.Eval.K = evalK
		}
		if flags.Changed("chunk-size") {
			cfg.Eval.ChunkSize = evalChunkSize
		}
		if flags.Changed("workers") {
			cfg.Eval.Workers = evalWorkers
		}
		if flags.Changed("aggregator") {
			cfg.Fusion.Aggregator = evalAggregator
		}
		if err := cfg.Check(); err != nil {
			return err
		}

		ts, err := eval.LoadTestSetFile(args[0])
		if err != nil {
			return err
		}
		weights, err := rankWeights(evalSignal, evalWeightArgs, cfg)
		if err != nil {
			return err
		}
		store, err := RequireStore(ctx)
		if err != nil {
			return err
		}
		ranker, err := BuildRanker(ctx, cfg, store, mtr)
		if err != nil {
			return err
		}

		h := eval.NewHarness(cfg.Eval, mtr)
		summary, err := h.Run(ctx, ts, func(_ context.Context, q string, k int) ([]string, bool, error) {
			r := ranker.Rank(q, weights, k)
			return r.Names(), r.Available(), nil
		})
		if err != nil {
			return err
		}

		if evalJSON {
			if !evalPerQuery {
				summary.Results = nil
			}
			return writeJSON(summary)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "weights: %s\n", weights.Normalize(nil))
		fmt.Fprintf(out, "queries: %s  evaluated: %s  coverage: %.1f%%\n",
			humanize.Comma(int64(summary.Queries)), humanize.Comma(int64(summary.Evaluated)), summary.Coverage*100)
		fmt.Fprintf(out, "P@%d: %.4f  MRR: %.4f  R@%d: %.4f  nDCG@%d: %.4f\n",
			summary.K, summary.PrecisionAtK, summary.MRR, summary.K, summary.RecallAtK, summary.K, summary.NDCGAtK)
		if n := len(summary.NotEvaluated); n > 0 {
			shown := summary.NotEvaluated[:min(n, 10)]
			fmt.Fprintf(out, "not evaluated (%d): %s", n, strings.Join(shown, ", "))
			if n > len(shown) {
				fmt.Fprintf(out, ", ... and %d more", n-len(shown))
			}
			fmt.Fprintln(out)
		}
		if evalPerQuery {
			for _, r := range summary.Results {
				if !r.Evaluated {
					continue
				}
				fmt.Fprintf(out, "  %-40s P=%.3f RR=%.3f R=%.3f nDCG=%.3f\n",
					truncName(r.Query, 40), r.Precision, r.RR, r.Recall, r.NDCG)
			}
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().IntVar(&evalK, "k", 10, "Cut-off for P@k, recall and nDCG (default: eval.k)")
	evaluateCmd.Flags().IntVar(&evalChunkSize, "chunk-size", 25, "Queries per chunk (default: eval.chunk_size)")
	evaluateCmd.Flags().IntVar(&evalWorkers, "workers", 4, "Chunks evaluated in parallel (default: eval.workers)")
	evaluateCmd.Flags().StringArrayVarP(&evalWeightArgs, "weight", "w", nil, "Signal weight as name=value (repeatable)")
	evaluateCmd.Flags().StringVar(&evalSignal, "signal", "", "Evaluate a single signal")
	evaluateCmd.Flags().StringVar(&evalAggregator, "aggregator", "weighted", "Score aggregation: weighted, combsum, rrf, combmax or combmin")
	evaluateCmd.Flags().BoolVar(&evalPerQuery, "per-query", false, "Include per-query scores")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(evaluateCmd)
}
