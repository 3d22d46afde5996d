package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is built once by Load and
// passed explicitly into the components that need it.
type Config struct {
	Graph   GraphConfig   `mapstructure:"graph"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Signals SignalsConfig `mapstructure:"signals"`
	Fusion  FusionConfig  `mapstructure:"fusion"`
	Noise   NoiseConfig   `mapstructure:"noise"`
	Eval    EvalConfig    `mapstructure:"eval"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// GraphConfig selects the persistence backend for the co-occurrence graph.
type GraphConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=json sqlite badger"`
	Path    string `mapstructure:"path" validate:"required"`
}

type IngestConfig struct {
	// ExcludePartitions lists partition names (case-insensitive) whose cards
	// never reach the graph, e.g. "Sideboard".
	ExcludePartitions []string `mapstructure:"exclude_partitions"`
}

// SignalsConfig points at the external lookup tables consumed by the
// similarity providers. Empty paths disable the corresponding signal.
type SignalsConfig struct {
	Embeddings     string `mapstructure:"embeddings"`
	TextEmbeddings string `mapstructure:"text_embeddings"`
	Tags           string `mapstructure:"tags"`
}

type FusionConfig struct {
	Weights    map[string]float64 `mapstructure:"weights"`
	Aggregator string             `mapstructure:"aggregator" validate:"oneof=weighted combsum rrf combmax combmin"`
	TopK       int                `mapstructure:"top_k" validate:"gte=1"`
	// MMRLambda > 0 diversifies rankings; 0 disables it.
	MMRLambda float64 `mapstructure:"mmr_lambda" validate:"gte=0,lte=1"`
}

type NoiseConfig struct {
	Game  string `mapstructure:"game"`
	Level string `mapstructure:"level" validate:"oneof=none basic common all"`
}

type EvalConfig struct {
	K                  int     `mapstructure:"k" validate:"gte=1"`
	ChunkSize          int     `mapstructure:"chunk_size" validate:"gte=1"`
	Workers            int     `mapstructure:"workers" validate:"gte=1"`
	AgreementThreshold float64 `mapstructure:"agreement_threshold" validate:"gte=0,lte=1"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type MetricsConfig struct {
	// Textfile, when set, receives a Prometheus text dump after each command.
	Textfile string `mapstructure:"textfile"`
}

// KnownSignals are the signal names the fusion ranker ships providers for.
var KnownSignals = []string{"embed", "functional", "jaccard", "text_embed"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("graph.backend", "sqlite")
	v.SetDefault("graph.path", "cooccurrence.db")
	v.SetDefault("ingest.exclude_partitions", []string{"Sideboard", "Maybeboard"})
	v.SetDefault("signals.embeddings", "")
	v.SetDefault("signals.text_embeddings", "")
	v.SetDefault("signals.tags", "")
	v.SetDefault("fusion.weights", map[string]float64{
		"embed":      0.20,
		"jaccard":    0.15,
		"functional": 0.10,
		"text_embed": 0.25,
	})
	v.SetDefault("fusion.aggregator", "weighted")
	v.SetDefault("fusion.top_k", 10)
	v.SetDefault("fusion.mmr_lambda", 0.0)
	v.SetDefault("noise.game", "magic")
	v.SetDefault("noise.level", "basic")
	v.SetDefault("eval.k", 10)
	v.SetDefault("eval.chunk_size", 25)
	v.SetDefault("eval.workers", 4)
	v.SetDefault("eval.agreement_threshold", 0.6)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("metrics.textfile", "")
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration from an optional file and SIMGRAPH_* environment
// variables, then validates it. An empty path uses defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SIMGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Check returns an error for configuration that cannot be used at all.
func (c *Config) Check() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate checks for suspicious but usable settings and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	known := make(map[string]bool, len(KnownSignals))
	for _, s := range KnownSignals {
		known[s] = true
	}

	names := make([]string, 0, len(c.Fusion.Weights))
	for name := range c.Fusion.Weights {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 0.0
	for _, name := range names {
		w := c.Fusion.Weights[name]
		if math.IsNaN(w) || math.IsInf(w, 0) {
			warnings = append(warnings, fmt.Sprintf("fusion weight %q is not a finite number and will be ignored", name))
			continue
		}
		if w < 0 {
			warnings = append(warnings, fmt.Sprintf("fusion weight %q is negative (%.3f) and will be ignored", name, w))
			continue
		}
		if !known[name] {
			warnings = append(warnings, fmt.Sprintf("fusion weight %q names no known signal and will be ignored", name))
			continue
		}
		total += w
	}
	if total == 0 {
		warnings = append(warnings, "fusion weights sum to zero; every ranking will be empty")
	}

	if c.Noise.Level != "none" && c.Noise.Game == "" {
		warnings = append(warnings, "noise.level is set but noise.game is empty; nothing will be filtered")
	}
	if c.Eval.ChunkSize > 0 && c.Eval.ChunkSize > 1000 {
		warnings = append(warnings, fmt.Sprintf("eval.chunk_size %d is large; peak memory grows with chunk size", c.Eval.ChunkSize))
	}

	return warnings
}
