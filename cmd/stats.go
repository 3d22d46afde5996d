package cmd

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"decksage/simgraph/internal/graph"
)

var (
	statsJSON         bool
	statsTopN         int
	statsStaleDays    int64
	statsHubThreshold int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report graph structure: topology, edge weights, staleness, fragility",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := RequireStore(cmd.Context())
		if err != nil {
			return err
		}

		report := graph.Analyze(store.Snapshot(), &graph.AnalyzerConfig{
			HubThreshold: statsHubThreshold,
			TopN:         statsTopN,
			StaleDays:    statsStaleDays,
		})

		if statsJSON {
			return writeJSON(report)
		}
		printStats(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	statsCmd.Flags().IntVar(&statsTopN, "top-n", 10, "Number of top items to show per section")
	statsCmd.Flags().Int64Var(&statsStaleDays, "stale-days", 90, "Days without a deck appearance to consider a card stale")
	statsCmd.Flags().IntVar(&statsHubThreshold, "hub-threshold", 50, "Minimum degree to consider a card a hub")
	rootCmd.AddCommand(statsCmd)
}

func printStats(w io.Writer, report *graph.AnalysisReport) {
	// Health bar
	barLen := min(int(report.HealthScore*20), 20)
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Fprintf(w, "\n  Graph Health: %.0f%%  [%s]\n", report.HealthScore*100, bar)
	fmt.Fprintf(w, "  breakdown: connectivity=%.2f components=%.2f freshness=%.2f fragility=%.2f\n",
		report.HealthBreakdown.Connectivity,
		report.HealthBreakdown.Components,
		report.HealthBreakdown.Freshness,
		report.HealthBreakdown.Fragility)
	if !report.LastUpdate.IsZero() {
		fmt.Fprintf(w, "  decks: %s  last update: %s (%s)\n\n",
			humanize.Comma(int64(report.TotalDecks)),
			report.LastUpdate.Format("2006-01-02 15:04"),
			humanize.Time(report.LastUpdate))
	} else {
		fmt.Fprintf(w, "  decks: %s\n\n", humanize.Comma(int64(report.TotalDecks)))
	}

	// Topology
	t := report.Topology
	fmt.Fprintln(w, "  TOPOLOGY")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	fmt.Fprintf(w, "  Cards: %s  Pairs: %s  Components: %d\n",
		humanize.Comma(int64(t.TotalNodes)), humanize.Comma(int64(t.TotalEdges)), t.NumComponents)
	fmt.Fprintf(w, "  Largest component: %d  Smallest: %d\n", t.LargestComponent, t.SmallestComponent)
	fmt.Fprintf(w, "  Degree: avg %.1f  max %d\n", t.AvgDegree, t.MaxDegree)

	if t.OrphanCount > 0 {
		fmt.Fprintf(w, "  Orphans: %d cards never paired\n", t.OrphanCount)
		limit := min(5, len(t.Orphans))
		for _, name := range t.Orphans[:limit] {
			fmt.Fprintf(w, "    - %s\n", truncName(name, 50))
		}
		if t.OrphanCount > 5 {
			fmt.Fprintf(w, "    ... and %d more\n", t.OrphanCount-5)
		}
	}

	// Degree distribution
	fmt.Fprintln(w, "\n  Degree distribution:")
	for _, b := range t.DegreeHistogram {
		if b.Count > 0 {
			barWidth := max(int(math.Log2(float64(b.Count)))+2, 1)
			fmt.Fprintf(w, "    %7s: %5d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	if len(t.Hubs) > 0 {
		fmt.Fprintln(w, "\n  Top hubs (degree >= threshold):")
		for _, hub := range t.Hubs {
			fmt.Fprintf(w, "    %-40s degree=%d decks=%d\n", truncName(hub.Name, 40), hub.Degree, hub.Decks)
		}
	}

	// Edge weights
	ws := report.Weights
	if len(ws.Strongest) > 0 {
		fmt.Fprintln(w, "\n  EDGE WEIGHTS")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		fmt.Fprintf(w, "  count_set: avg %.2f max %d   count_multiset: avg %.2f max %d\n",
			ws.AvgCountSet, ws.MaxCountSet, ws.AvgCountMultiset, ws.MaxCountMultiset)
		for _, e := range ws.Strongest {
			fmt.Fprintf(w, "    %s + %s  (%d decks, %d copies)\n",
				truncName(e.A, 30), truncName(e.B, 30), e.CountSet, e.CountMultiset)
		}
	}

	// Staleness
	s := report.Staleness
	if s.StaleCardCount > 0 || s.NewCardCount > 0 {
		fmt.Fprintln(w, "\n  STALENESS")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		fmt.Fprintf(w, "  %d new cards, %d stale cards\n", s.NewCardCount, s.StaleCardCount)
		for _, c := range s.StaleCards {
			fmt.Fprintf(w, "    %-40s %dd since last deck, %d decks\n", truncName(c.Name, 40), c.DaysSinceSeen, c.Decks)
		}
	}

	// Bridges
	br := report.Bridges
	if br.APCount > 0 || br.BridgeCount > 0 {
		fmt.Fprintln(w, "\n  STRUCTURAL FRAGILITY")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		fmt.Fprintf(w, "  %s pairs seen in a single deck\n", humanize.Comma(int64(br.SingleDeckEdges)))
		if br.APCount > 0 {
			fmt.Fprintf(w, "  %d articulation cards (removal disconnects graph):\n", br.APCount)
			for _, ap := range br.ArticulationCards {
				fmt.Fprintf(w, "    %s (degree %d)\n", truncName(ap.Name, 40), ap.Degree)
			}
		}
		if br.BridgeCount > 0 {
			fmt.Fprintf(w, "  %d bridge pairs (removal disconnects graph):\n", br.BridgeCount)
			for _, be := range br.Bridges {
				fmt.Fprintf(w, "    %s <-> %s\n", truncName(be.A, 30), truncName(be.B, 30))
			}
		}
	}

	fmt.Fprintln(w)
}
