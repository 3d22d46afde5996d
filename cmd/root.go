package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"decksage/simgraph/internal/config"
	"decksage/simgraph/internal/graph"
	"decksage/simgraph/internal/logging"
	"decksage/simgraph/internal/metrics"
)

const configFileName = "simgraph.yaml"

var (
	configPath   string
	logLevel     string
	logFormat    string
	graphBackend string
	graphPath    string

	// Set by PersistentPreRunE and handed explicitly to every component.
	cfg *config.Config
	mtr *metrics.Metrics
)

var rootCmd = &cobra.Command{
	Use:           "simgraph",
	Short:         "Card co-occurrence graph, similarity fusion and evaluation",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, err := DiscoverConfig()
		if err != nil {
			return err
		}
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, c)
		if err := c.Check(); err != nil {
			return err
		}
		cfg = c

		logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})
		log := logging.Component("cli")
		if path != "" {
			log.Debug().Str("path", path).Msg("config loaded")
		}
		for _, w := range cfg.Validate() {
			log.Warn().Msg(w)
		}
		mtr = metrics.New()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return nil
		}
		if err := mtr.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("writing metrics textfile: %w", err)
		}
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to "+configFileName+" (default: discovered)")
	pf.StringVar(&logLevel, "log-level", "", "Override log level (trace, debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "Override log format (console, json)")
	pf.StringVar(&graphBackend, "backend", "", "Override graph backend (json, sqlite, badger)")
	pf.StringVar(&graphPath, "graph", "", "Override graph location")
}

func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	pf := cmd.Flags()
	if pf.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if pf.Changed("log-format") {
		c.Log.Format = logFormat
	}
	if pf.Changed("backend") {
		c.Graph.Backend = graphBackend
	}
	if pf.Changed("graph") {
		c.Graph.Path = graphPath
	}
}

// DiscoverConfig finds the config file using priority: flag > env > walk-up
// > XDG. An empty result means defaults plus environment.
func DiscoverConfig() (string, error) {
	// 1. CLI flag
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return "", fmt.Errorf("config not found at --config path: %s", configPath)
		}
		return configPath, nil
	}

	// 2. Environment variable
	if envPath := os.Getenv("SIMGRAPH_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("config not found at SIMGRAPH_CONFIG: %s", envPath)
	}

	// 3. Walk up from CWD
	if dir, err := os.Getwd(); err == nil {
		if found := walkUp(dir, configFileName); found != "" {
			return found, nil
		}
	}

	// 4. XDG fallback
	if cfgDir, err := os.UserConfigDir(); err == nil {
		xdgPath := filepath.Join(cfgDir, "simgraph", configFileName)
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", nil
}

func walkUp(dir, name string) string {
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// OpenBackend builds the configured graph backend.
func OpenBackend() (graph.Backend, error) {
	return graph.NewBackend(cfg.Graph.Backend, cfg.Graph.Path, mtr)
}

// OpenStore loads the configured graph, starting empty when none exists.
func OpenStore(ctx context.Context) (*graph.Store, error) {
	b, err := OpenBackend()
	if err != nil {
		return nil, err
	}
	return graph.Open(ctx, b, graph.Options{
		ExcludePartitions: cfg.Ingest.ExcludePartitions,
		Metrics:           mtr,
	})
}

// RequireStore is OpenStore for read-only commands: a missing graph is an
// error rather than an empty result.
func RequireStore(ctx context.Context) (*graph.Store, error) {
	b, err := OpenBackend()
	if err != nil {
		return nil, err
	}
	ok, err := b.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w at %s (%s); run ingest first", graph.ErrNoGraph, b.Location(), b.Kind())
	}
	return graph.Open(ctx, b, graph.Options{
		ExcludePartitions: cfg.Ingest.ExcludePartitions,
		Metrics:           mtr,
	})
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back up to a rune boundary
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
