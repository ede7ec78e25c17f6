package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/fluxbase-eu/libbuild/cli/bundler"
	"github.com/fluxbase-eu/libbuild/internal/config"
	"github.com/fluxbase-eu/libbuild/internal/manifest"
	"github.com/fluxbase-eu/libbuild/internal/observability"
	"github.com/fluxbase-eu/libbuild/internal/orchestrator"
)

// project is everything a command needs to resolve builds
type project struct {
	root       string
	config     *config.Config
	manifest   *manifest.Manifest
	dispatcher *orchestrator.Dispatcher
}

// loadProject reads the build file and package manifest under root
func loadProject(root string) (*project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	configPath := viper.GetString("config")
	if configPath == "" {
		configPath = cfgFile
	}
	cfg, err := config.Load(abs, configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		debug = true
		initLogging()
	}

	manifestPath := cfg.Manifest
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(abs, manifestPath)
	}
	pkg, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("root", abs).
		Str("build_file", cfg.Source()).
		Str("package", pkg.Name).
		Msg("Project loaded")

	return &project{
		root:       abs,
		config:     cfg,
		manifest:   pkg,
		dispatcher: orchestrator.NewDispatcher(abs, cfg, pkg),
	}, nil
}

// currentMode returns the --mode flag or LIBBUILD_MODE
func currentMode() string {
	if m := viper.GetString("mode"); m != "" {
		return m
	}
	return modeName
}

// commandContext is cancelled on SIGINT or SIGTERM
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// telemetry bundles the metrics registry and tracer of one invocation
type telemetry struct {
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

func newTelemetry(ctx context.Context, cfg *config.Config) (*telemetry, error) {
	tracer, err := observability.NewTracer(ctx, cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, err
	}
	return &telemetry{metrics: observability.NewMetrics(), tracer: tracer}, nil
}

// orchestrator wires the esbuild driver and telemetry into an orchestrator
func (t *telemetry) orchestrator(p *project) *orchestrator.Orchestrator {
	return orchestrator.New(p.dispatcher, bundler.NewESBuild(),
		orchestrator.WithRecorder(t.metrics),
		orchestrator.WithTracer(t.tracer.Tracer()),
	)
}

// close writes the metrics file and flushes pending spans
func (t *telemetry) close() {
	if metricsFile != "" {
		if err := t.metrics.WriteTextfile(metricsFile); err != nil {
			log.Warn().Err(err).Msg("Failed to write metrics file")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.tracer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush traces")
	}
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
