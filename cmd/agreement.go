package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"decksage/simgraph/internal/eval"
)

var (
	agreeThreshold float64
	agreeDistance  string
	agreeJSON      bool
)

var agreementCmd = &cobra.Command{
	Use:   "agreement <judge.json> <judge.json> [judge.json ...]",
	Short: "Measure inter-annotator agreement between graded test sets",
	Long: `Each file is one judge's test set. Items are (query, card) pairs; a judge
who graded a query but did not list a card counts as grading it irrelevant.
Reports Krippendorff's alpha and the unanimous agreement rate, overall and
per query, and flags queries below the threshold as unreliable.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold := cfg.Eval.AgreementThreshold
		if cmd.Flags().Changed("threshold") {
			threshold = agreeThreshold
		}
		dist, err := eval.ParseDistance(agreeDistance)
		if err != nil {
			return err
		}

		judgments := make([]eval.Judgment, 0, len(args))
		for _, path := range args {
			ts, err := eval.LoadTestSetFile(path)
			if err != nil {
				return err
			}
			judge := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			judgments = append(judgments, eval.Judgment{Judge: judge, Set: ts})
		}

		rep, err := eval.Agreement(judgments, eval.AgreementOptions{Distance: dist, Threshold: threshold})
		if err != nil {
			return err
		}
		if agreeJSON {
			return writeJSON(rep)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "judges: %s\n", strings.Join(rep.Judges, ", "))
		fmt.Fprintf(out, "queries: %d  items: %d\n", rep.Queries, rep.Items)
		fmt.Fprintf(out, "alpha (%s): %.3f  %s\n", rep.Distance, rep.Alpha, rep.Interpretation)
		fmt.Fprintf(out, "agreement rate: %.1f%%\n", rep.Rate*100)
		if len(rep.Unreliable) > 0 {
			fmt.Fprintf(out, "\n%d queries below alpha %.2f:\n", len(rep.Unreliable), threshold)
			for _, q := range rep.PerQuery {
				if q.Unreliable {
					fmt.Fprintf(out, "  %-40s alpha=%.3f rate=%.2f items=%d\n", truncName(q.Query, 40), q.Alpha, q.Rate, q.Items)
				}
			}
		}
		return nil
	},
}

func init() {
	agreementCmd.Flags().Float64Var(&agreeThreshold, "threshold", 0.6, "Flag queries below this alpha (default: eval.agreement_threshold)")
	agreementCmd.Flags().StringVar(&agreeDistance, "distance", "interval", "Label distance: interval or nominal")
	agreementCmd.Flags().BoolVar(&agreeJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(agreementCmd)
}
