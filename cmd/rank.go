package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"decksage/simgraph/internal/deck"
	"decksage/simgraph/internal/fusion"
)

var (
	rankK          int
	rankWeightArgs []string
	rankSignal     string
	rankAggregator string
	rankMMR        float64
	rankWith       []string
	rankExplain    bool
	rankJSON       bool
)

var rankCmd = &cobra.Command{
	Use:   "rank <card>",
	Short: "Rank the cards most similar to a query card",
	Long: `Scores every candidate with each weighted signal, renormalises the weights
over the signals that have data for the query and merges the scores.

Use --signal to rank by one signal alone. Each --with card adds another
query; candidates are then scored by their mean fused score across queries.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := normalizedArgs(args)

		if cmd.Flags().Changed("aggregator") {
			cfg.Fusion.Aggregator = rankAggregator
		}
		if cmd.Flags().Changed("mmr") {
			if rankMMR < 0 || rankMMR > 1 {
				return fmt.Errorf("--mmr must be within [0, 1], got %g", rankMMR)
			}
			cfg.Fusion.MMRLambda = rankMMR
		}
		k := cfg.Fusion.TopK
		if cmd.Flags().Changed("k") {
			k = rankK
		}
		weights, err := rankWeights(rankSignal, rankWeightArgs, cfg)
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

		var ranking fusion.Ranking
		if len(rankWith) > 0 {
			queries := []string{query}
			for _, w := range rankWith {
				if n := deck.NormalizeName(w); n != "" {
					queries = append(queries, n)
				}
			}
			ranking = ranker.RankMulti(queries, weights, k)
		} else {
			ranking = ranker.Rank(query, weights, k)
		}
		if rankJSON {
			return writeJSON(ranking)
		}

		out := cmd.OutOrStdout()
		for _, w := range ranking.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		if !ranking.Available() {
			fmt.Fprintf(out, "no signal has data for %q\n", query)
			return nil
		}
		fmt.Fprintf(out, "%s  [%s]\n", ranking.Query, ranking.Weights)
		if len(ranking.Unavailable) > 0 {
			fmt.Fprintf(out, "  unavailable: %s\n", strings.Join(ranking.Unavailable, ", "))
		}
		for i, it := range ranking.Items {
			fmt.Fprintf(out, "  %2d. %-40s %.4f", i+1, truncName(it.Name, 40), it.Score)
			if rankExplain && len(ranking.Queries) == 0 {
				b := ranker.Breakdown(query, it.Name)
				for _, s := range ranking.Weights.Names() {
					if v, ok := b[s]; ok {
						fmt.Fprintf(out, "  %s=%.3f", s, v)
					} else {
						fmt.Fprintf(out, "  %s=-", s)
					}
				}
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	rankCmd.Flags().IntVar(&rankK, "k", 10, "Number of results (default: fusion.top_k)")
	rankCmd.Flags().StringArrayVarP(&rankWeightArgs, "weight", "w", nil, "Signal weight as name=value (repeatable)")
	rankCmd.Flags().StringVar(&rankSignal, "signal", "", "Rank by a single signal")
	rankCmd.Flags().StringVar(&rankAggregator, "aggregator", "weighted", "Score aggregation: weighted, combsum, rrf, combmax or combmin")
	rankCmd.Flags().Float64Var(&rankMMR, "mmr", 0, "MMR diversification strength in [0, 1] (default: fusion.mmr_lambda)")
	rankCmd.Flags().StringArrayVar(&rankWith, "with", nil, "Additional query card (repeatable)")
	rankCmd.Flags().BoolVar(&rankExplain, "explain", false, "Show per-signal scores")
	rankCmd.Flags().BoolVar(&rankJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(rankCmd)
}
