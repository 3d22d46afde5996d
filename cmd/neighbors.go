package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"decksage/simgraph/internal/deck"
)

var neighborsTop int

var neighborsCmd = &cobra.Command{
	Use:   "neighbors <card> [-- <other card>]",
	Short: "Show a card's co-occurring cards, or the counts of one pair",
	Long: `With one card, lists its neighbours ordered by how many decks they share.
With a second card after "--", prints that pair's edge counts.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := RequireStore(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if dash := cmd.ArgsLenAtDash(); dash > 0 && dash < len(args) {
			a, b := normalizedArgs(args[:dash]), normalizedArgs(args[dash:])
			e, ok := store.Edge(a, b)
			if !ok {
				fmt.Fprintf(out, "%q and %q never share a deck\n", a, b)
				return nil
			}
			fmt.Fprintf(out, "%s + %s: count_set=%d count_multiset=%d\n", e.Key.A, e.Key.B, e.CountSet, e.CountMultiset)
			return nil
		}

		card := normalizedArgs(args)
		node, ok := store.Node(card)
		if !ok {
			fmt.Fprintf(out, "%q is not in the graph\n", card)
			return nil
		}
		names := store.Neighbors(card)
		type row struct {
			name       string
			set, multi int
		}
		rows := make([]row, 0, len(names))
		for _, n := range names {
			e, _ := store.Edge(card, n)
			rows = append(rows, row{n, e.CountSet, e.CountMultiset})
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].set > rows[j].set })

		fmt.Fprintf(out, "%s: %d decks, %d neighbours\n", card, node.Decks, len(rows))
		for _, r := range rows[:min(neighborsTop, len(rows))] {
			fmt.Fprintf(out, "  %-40s %5d decks  %5d copies\n", truncName(r.name, 40), r.set, r.multi)
		}
		return nil
	},
}

func normalizedArgs(args []string) string {
	return deck.NormalizeName(strings.Join(args, " "))
}

func init() {
	neighborsCmd.Flags().IntVar(&neighborsTop, "top", 25, "Number of neighbours to list")
	rootCmd.AddCommand(neighborsCmd)
}
