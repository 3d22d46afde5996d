package cmd

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"decksage/simgraph/internal/graph"
)

var (
	migrateToBackend    string
	migrateToPath       string
	migrateDeleteSource bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate --to-backend <kind> --to-path <path>",
	Short: "Copy the graph to another backend and verify the copy",
	Long: `Writes the configured graph to the destination backend, reloads it and
checks node count, edge count and every pair's counts against the source.
On a mismatch nothing is deleted and the command fails with both sides'
counts. --delete-source removes the source only after verification.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateToBackend == "" || migrateToPath == "" {
			return fmt.Errorf("both --to-backend and --to-path are required")
		}
		from, err := OpenBackend()
		if err != nil {
			return err
		}
		to, err := graph.NewBackend(migrateToBackend, migrateToPath, mtr)
		if err != nil {
			return err
		}

		res, err := graph.Migrate(cmd.Context(), from, to, graph.MigrateOptions{DeleteSource: migrateDeleteSource})
		if err != nil {
			var mm *graph.MismatchError
			if errors.As(err, &mm) {
				fmt.Fprintf(cmd.ErrOrStderr(), "source kept at %s\n", from.Location())
			}
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "migrated %s (%s) -> %s (%s)\n", from.Location(), from.Kind(), to.Location(), to.Kind())
		fmt.Fprintf(out, "verified %s cards, %s pairs, %s deck ids\n",
			humanize.Comma(int64(res.Nodes)), humanize.Comma(int64(res.Edges)), humanize.Comma(int64(res.Decks)))
		if res.SourceDeleted {
			fmt.Fprintf(out, "removed source %s\n", from.Location())
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateToBackend, "to-backend", "", "Destination backend (json, sqlite, badger)")
	migrateCmd.Flags().StringVar(&migrateToPath, "to-path", "", "Destination location")
	migrateCmd.Flags().BoolVar(&migrateDeleteSource, "delete-source", false, "Remove the source after a verified copy")
	rootCmd.AddCommand(migrateCmd)
}
