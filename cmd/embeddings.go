package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"decksage/simgraph/internal/db"
	"decksage/simgraph/internal/graph"
	"decksage/simgraph/internal/similarity"
)

var (
	embedSpace string
	embedDB    string
)

var importEmbeddingsCmd = &cobra.Command{
	Use:   "import-embeddings <vectors.json>",
	Short: "Store a name -> vector JSON table in a sqlite embeddings table",
	Long: `Vectors are stored as little-endian float32 blobs under the given space
(embed or text_embed). Without --db the sqlite graph file is used, so the
ranker picks the vectors up when signals.embeddings is not set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := embedDB
		if target == "" {
			if cfg.Graph.Backend != graph.KindSQLite {
				return fmt.Errorf("graph backend is %s; pass --db to choose a sqlite file", cfg.Graph.Backend)
			}
			target = cfg.Graph.Path
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening vectors: %w", err)
		}
		defer f.Close()
		table, err := similarity.LoadVectorsJSON(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		d, err := db.OpenDB(target)
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.PutEmbeddings(cmd.Context(), embedSpace, table); err != nil {
			return err
		}
		n, err := d.CountEmbeddings(cmd.Context(), embedSpace)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %s %s vectors (dim %d); %s in %s\n",
			humanize.Comma(int64(len(table))), embedSpace, table.Dim(), humanize.Comma(int64(n)), target)
		return nil
	},
}

var (
	similarTop int
	similarMin float64
)

var similarCmd = &cobra.Command{
	Use:   "similar <card>",
	Short: "List nearest cards by raw cosine similarity in one embedding space",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := normalizedArgs(args)
		path := cfg.Signals.Embeddings
		if embedSpace == similarity.SignalTextEmbed {
			path = cfg.Signals.TextEmbeddings
		}
		table, err := LoadVectors(cmd.Context(), path, embedSpace, cfg.Graph)
		if err != nil {
			return err
		}
		vec, ok := table[query]
		if !ok {
			return fmt.Errorf("%q has no %s vector", query, embedSpace)
		}
		out := cmd.OutOrStdout()
		for i, s := range similarity.FindSimilar(vec, table, query, similarTop, float32(similarMin)) {
			fmt.Fprintf(out, "  %2d. %-40s %.4f\n", i+1, truncName(s.Name, 40), s.Similarity)
		}
		return nil
	},
}

func init() {
	importEmbeddingsCmd.Flags().StringVar(&embedSpace, "space", similarity.SignalEmbed, "Embedding space: embed or text_embed")
	importEmbeddingsCmd.Flags().StringVar(&embedDB, "db", "", "Target sqlite file (default: the sqlite graph)")
	similarCmd.Flags().StringVar(&embedSpace, "space", similarity.SignalEmbed, "Embedding space: embed or text_embed")
	similarCmd.Flags().IntVar(&similarTop, "top", 10, "Number of results")
	similarCmd.Flags().Float64Var(&similarMin, "min", -1, "Minimum cosine similarity")
	rootCmd.AddCommand(importEmbeddingsCmd)
	rootCmd.AddCommand(similarCmd)
}
