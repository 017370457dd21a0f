// tsmigrate copies sensor readings from a relational time-series store into
// a metrics store.
//
// Usage:
//
//	tsmigrate [-config path]
//
// The config path defaults to $TSMIGRATE_CONFIG, then configs/config.yaml.
// Credentials are read from TSMIGRATE_* environment variables. The process
// exits 0 when the run drains cleanly, including on SIGINT/SIGTERM or a run
// deadline, and 1 on configuration errors, connect failures, or a failed run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/tsmigrate/internal/api"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/config"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/logging"
	"github.com/nerrad567/tsmigrate/internal/infrastructure/metrics"
	"github.com/nerrad567/tsmigrate/internal/pipeline"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command-line arguments without the program name
//
// Returns:
//   - error: nil when the pipeline ends Closed, or error describing failure
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tsmigrate", flag.ContinueOnError)
	configPath := fs.String("config", getConfigPath(), "path to the YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logging.Default()
	log.Info("starting tsmigrate",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", *configPath,
		"source", cfg.Source.Kind,
		"source_endpoint", cfg.Source.Endpoint(),
		"sink", cfg.Sink.Kind,
		"sink_endpoint", cfg.Sink.Endpoint(),
	)

	if timeout := cfg.GetRunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		log.Info("run deadline set", "timeout", timeout.String())
	}

	observer := metrics.New()
	p, err := pipeline.New(pipeline.Deps{
		Source:   cfg.Source,
		Sink:     cfg.Sink,
		Pipeline: cfg.Pipeline,
		Logger:   log,
		Observer: observer,
	})
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	if cfg.Status.Enabled {
		srv, srvErr := api.New(api.Deps{
			Config:  cfg.Status,
			Logger:  log,
			Status:  p,
			Health:  p,
			Metrics: observer.Gatherer(),
			Version: version,
		})
		if srvErr != nil {
			return fmt.Errorf("creating status server: %w", srvErr)
		}
		if srvErr = srv.Start(ctx); srvErr != nil {
			return fmt.Errorf("starting status server: %w", srvErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing status server", "error", closeErr)
			}
		}()
	}

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("migration %s: %w", p.ID(), err)
	}
	return nil
}

// getConfigPath returns the default configuration file path.
// Uses TSMIGRATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TSMIGRATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
