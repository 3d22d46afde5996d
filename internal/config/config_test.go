package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Graph.Backend)
	assert.Equal(t, "cooccurrence.db", cfg.Graph.Path)
	assert.Equal(t, "weighted", cfg.Fusion.Aggregator)
	assert.Equal(t, 10, cfg.Fusion.TopK)
	assert.Equal(t, 25, cfg.Eval.ChunkSize)
	assert.InDelta(t, 0.6, cfg.Eval.AgreementThreshold, 1e-9)
	assert.InDelta(t, 0.25, cfg.Fusion.Weights["text_embed"], 1e-9)
	assert.ElementsMatch(t, []string{"Sideboard", "Maybeboard"}, cfg.Ingest.ExcludePartitions)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "simgraph.yaml")
	body := `
graph:
  backend: badger
  path: /tmp/graph
fusion:
  aggregator: combmax
  mmr_lambda: 0.3
  weights:
    jaccard: 1.0
noise:
  level: common
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Graph.Backend)
	assert.Equal(t, "/tmp/graph", cfg.Graph.Path)
	assert.Equal(t, "combmax", cfg.Fusion.Aggregator)
	assert.InDelta(t, 0.3, cfg.Fusion.MMRLambda, 1e-9)
	assert.Equal(t, "common", cfg.Noise.Level)
	assert.InDelta(t, 1.0, cfg.Fusion.Weights["jaccard"], 1e-9)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SIMGRAPH_GRAPH_BACKEND", "json")
	t.Setenv("SIMGRAPH_EVAL_K", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Graph.Backend)
	assert.Equal(t, 5, cfg.Eval.K)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("SIMGRAPH_GRAPH_BACKEND", "neo4j")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Backend")
}

func TestLoad_RejectsMMROutOfRange(t *testing.T) {
	t.Setenv("SIMGRAPH_FUSION_MMR_LAMBDA", "1.5")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MMRLambda")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_Warnings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Fusion.Weights["embed"] = -1 },
			wantSub: "negative",
		},
		{
			name:    "non-finite weight",
			mutate:  func(c *Config) { c.Fusion.Weights["embed"] = math.Inf(1) },
			wantSub: "not a finite number",
		},
		{
			name:    "unknown signal",
			mutate:  func(c *Config) { c.Fusion.Weights["vibes"] = 0.3 },
			wantSub: "no known signal",
		},
		{
			name:    "zero sum",
			mutate:  func(c *Config) { c.Fusion.Weights = map[string]float64{"jaccard": 0} },
			wantSub: "sum to zero",
		},
		{
			name:    "level without game",
			mutate:  func(c *Config) { c.Noise.Game = "" },
			wantSub: "noise.game is empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			warnings := cfg.Validate()
			require.NotEmpty(t, warnings)
			found := false
			for _, w := range warnings {
				if strings.Contains(w, tt.wantSub) {
					found = true
				}
			}
			assert.True(t, found, "warnings %v missing %q", warnings, tt.wantSub)
		})
	}
}
