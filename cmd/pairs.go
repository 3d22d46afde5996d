package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"decksage/simgraph/internal/graph"
)

var importPairsForce bool

var exportPairsCmd = &cobra.Command{
	Use:   "export-pairs [out.csv]",
	Short: "Write the graph as a NAME_1,NAME_2,COUNT_SET,COUNT_MULTISET table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := RequireStore(cmd.Context())
		if err != nil {
			return err
		}
		g := store.Snapshot()

		if len(args) == 0 || args[0] == "-" {
			return graph.WritePairs(cmd.OutOrStdout(), g)
		}
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("creating pairs file: %w", err)
		}
		if err := graph.WritePairs(f, g); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s pairs to %s\n", humanize.Comma(int64(len(g.Edges))), args[0])
		return nil
	},
}

var importPairsCmd = &cobra.Command{
	Use:   "import-pairs <in.csv>",
	Short: "Rebuild the graph from a pairs table and save it to the configured backend",
	Long: `Pair order in the table does not matter; rows naming the same pair in
either order are merged. Malformed rows are skipped and counted. Deck IDs
and per-card deck counts are not part of the format.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := OpenBackend()
		if err != nil {
			return err
		}
		exists, err := b.Exists(ctx)
		if err != nil {
			return err
		}
		if exists && !importPairsForce {
			return fmt.Errorf("a graph already exists at %s; use --force to replace it", b.Location())
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening pairs file: %w", err)
		}
		defer f.Close()
		g, rep, err := graph.ReadPairs(f)
		if err != nil {
			return err
		}
		g.LastUpdate = time.Now().UTC().Truncate(time.Millisecond)
		if err := b.Save(ctx, g); err != nil {
			return fmt.Errorf("saving graph: %w", err)
		}
		mtr.GraphSize(len(g.Nodes), len(g.Edges))

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "rows %s, merged %s, skipped %s -> %s cards, %s pairs\n",
			humanize.Comma(int64(rep.Rows)), humanize.Comma(int64(rep.Merged)), humanize.Comma(int64(rep.Skipped)),
			humanize.Comma(int64(len(g.Nodes))), humanize.Comma(int64(len(g.Edges))))
		reasons := make([]string, 0, len(rep.Reasons))
		for r := range rep.Reasons {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(out, "  %-20s %d\n", r, rep.Reasons[r])
		}
		return nil
	},
}

func init() {
	importPairsCmd.Flags().BoolVar(&importPairsForce, "force", false, "Replace an existing graph")
	rootCmd.AddCommand(exportPairsCmd)
	rootCmd.AddCommand(importPairsCmd)
}
