package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"decksage/simgraph/internal/config"
	"decksage/simgraph/internal/db"
	"decksage/simgraph/internal/fusion"
	"decksage/simgraph/internal/graph"
	"decksage/simgraph/internal/logging"
	"decksage/simgraph/internal/metrics"
	"decksage/simgraph/internal/noise"
	"decksage/simgraph/internal/similarity"
)

// BuildRanker registers every signal the configuration can feed: Jaccard
// over the graph, the two embedding spaces and functional tags. A signal
// whose table is not configured is simply not registered, which the ranker
// reports as unavailable.
func BuildRanker(ctx context.Context, c *config.Config, store *graph.Store, m *metrics.Metrics) (*fusion.Ranker, error) {
	log := logging.Component("signals")

	agg, err := fusion.ParseAggregator(c.Fusion.Aggregator)
	if err != nil {
		return nil, err
	}
	level, err := noise.ParseLevel(c.Noise.Level)
	if err != nil {
		return nil, err
	}

	r := fusion.NewRanker(fusion.Options{
		Aggregator: agg,
		Exclude:    noise.NewFilter().Func(c.Noise.Game, level),
		MMRLambda:  c.Fusion.MMRLambda,
		Metrics:    m,
	})
	r.Register(similarity.NewJaccard(store))

	for _, sig := range []struct{ name, path string }{
		{similarity.SignalEmbed, c.Signals.Embeddings},
		{similarity.SignalTextEmbed, c.Signals.TextEmbeddings},
	} {
		table, err := LoadVectors(ctx, sig.path, sig.name, c.Graph)
		if err != nil {
			return nil, err
		}
		if len(table) == 0 {
			log.Debug().Str("signal", sig.name).Msg("no vectors configured")
			continue
		}
		log.Debug().Str("signal", sig.name).Int("cards", len(table)).Int("dim", table.Dim()).Msg("vectors loaded")
		r.Register(similarity.NewVector(sig.name, table))
	}

	if c.Signals.Tags != "" {
		f, err := os.Open(c.Signals.Tags)
		if err != nil {
			return nil, fmt.Errorf("opening tags: %w", err)
		}
		defer f.Close()
		tags, err := similarity.LoadTagsJSON(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Signals.Tags, err)
		}
		log.Debug().Int("cards", len(tags)).Msg("tags loaded")
		r.Register(similarity.NewTags(tags))
	}
	return r, nil
}

// LoadVectors reads an embedding space. A .json path is a name -> vector
// object; any other path is a sqlite file with an embeddings table. With no
// path, a sqlite graph's own embeddings table is used when it exists. A nil
// table means the space is not configured.
func LoadVectors(ctx context.Context, path, space string, g config.GraphConfig) (similarity.VectorTable, error) {
	if path == "" {
		if g.Backend != graph.KindSQLite {
			return nil, nil
		}
		if _, err := os.Stat(g.Path); err != nil {
			return nil, nil
		}
		path = g.Path
	} else if strings.EqualFold(filepath.Ext(path), ".json") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s vectors: %w", space, err)
		}
		defer f.Close()
		t, err := similarity.LoadVectorsJSON(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return t, nil
	}

	d, err := db.OpenDB(path)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return similarity.LoadVectorsDB(ctx, d, space)
}

// rankWeights picks the weights for a ranking command: a single --signal,
// explicit --weight flags, or the configured weights.
func rankWeights(signal string, flags []string, c *config.Config) (fusion.Weights, error) {
	switch {
	case signal != "":
		return fusion.Weights{signal: 1}, nil
	case len(flags) > 0:
		return fusion.ParseWeights(flags)
	}
	w := make(fusion.Weights, len(c.Fusion.Weights))
	for k, v := range c.Fusion.Weights {
		w[k] = v
	}
	return w, nil
}
