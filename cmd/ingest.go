package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"decksage/simgraph/internal/deck"
)

var (
	ingestDryRun  bool
	ingestExclude []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [decks.jsonl ...]",
	Short: "Fold deck JSONL records into the co-occurrence graph",
	Long: `Reads one deck per line from each file (or stdin when no file or "-" is
given), adds every valid deck to the configured graph and saves it.

Malformed records are skipped and counted; a deck ID already in the graph
is reported as a duplicate and not counted again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cmd.Flags().Changed("exclude") {
			cfg.Ingest.ExcludePartitions = ingestExclude
		}

		store, err := OpenStore(ctx)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			args = []string{"-"}
		}
		report := deck.NewReport()
		for _, path := range args {
			if err := ingestOne(cmd, path, func(r io.Reader) error {
				return store.Ingest(ctx, r, report)
			}); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, report.String())
		for _, ex := range report.Examples {
			fmt.Fprintf(out, "  line %d: %v\n", ex.Line, ex.Err)
		}

		nodes, edges, decks := store.Counts()
		fmt.Fprintf(out, "graph: %s cards, %s pairs, %s decks\n",
			humanize.Comma(int64(nodes)), humanize.Comma(int64(edges)), humanize.Comma(int64(decks)))

		if ingestDryRun {
			fmt.Fprintln(out, "dry run: graph not saved")
			return nil
		}
		return store.Save(ctx)
	},
}

func ingestOne(cmd *cobra.Command, path string, fn func(io.Reader) error) error {
	if path == "-" {
		return fn(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening decks: %w", err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "Build the graph but do not save it")
	ingestCmd.Flags().StringSliceVar(&ingestExclude, "exclude", nil, "Partitions to ignore (overrides ingest.exclude_partitions)")
	rootCmd.AddCommand(ingestCmd)
}
