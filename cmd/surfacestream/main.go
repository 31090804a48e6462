// Package main implements the entry point for the SurfaceStream service.
// SurfaceStream folds streamed UI envelopes into per-surface state and
// publishes rendered component trees to connected clients.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/c360/surfacestream/component"
	"github.com/c360/surfacestream/componentregistry"
	"github.com/c360/surfacestream/config"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/natsclient"
	"github.com/c360/surfacestream/processor/surfaceproc"
	"github.com/c360/surfacestream/surface"
	"github.com/c360/surfacestream/surfacestore"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "surfacestream"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load configuration; CLI logging flags win over the config file
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	slog.Info("Starting SurfaceStream (streaming UI surface processing)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()

	// Core infrastructure: metrics, NATS, shared surface state
	metricsRegistry := metric.NewMetricsRegistry()
	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
	} else {
		slog.Info("Metrics endpoint disabled")
	}

	natsClient, err := connectNATS(ctx, cfg, logger, metricsRegistry.CoreMetrics())
	if err != nil {
		return err
	}
	defer func() {
		if err := natsClient.Close(); err != nil {
			slog.Warn("NATS close failed", "error", err)
		}
	}()

	surfaces := surface.NewStore()

	// Snapshot persistence: restore prior surface state before any
	// envelope is processed
	snapshots, err := setupSnapshots(ctx, cfg, natsClient, surfaces, logger)
	if err != nil {
		return err
	}

	// Component registry and instances
	registry := component.NewRegistry()
	if err := componentregistry.Register(registry); err != nil {
		return fmt.Errorf("register components: %w", err)
	}
	slog.Info("Component factories registered", "factories", registry.ListComponentTypes())

	deps := component.Dependencies{
		NATSClient:      natsClient,
		Surfaces:        surfaces,
		MetricsRegistry: metricsRegistry,
		Logger:          logger,
	}

	components, err := createComponents(cfg, registry, deps, snapshots)
	if err != nil {
		return err
	}

	// Run until a shutdown signal arrives
	return runWithSignalHandling(ctx, components, metricsServer, natsClient,
		metricsRegistry.CoreMetrics(), cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and handles version/help short-circuits
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	return cliCfg, false, nil
}

// connectNATS creates the NATS client from configuration and connects.
// SURFACESTREAM_NATS_URL overrides the config file. Connection state changes
// feed the NATS health gauges.
func connectNATS(
	ctx context.Context, cfg config.Config, logger *slog.Logger, core *metric.Metrics,
) (*natsclient.Client, error) {
	if envURL := os.Getenv("SURFACESTREAM_NATS_URL"); envURL != "" {
		cfg.NATS.URL = envURL
	}

	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithClientName(cfg.NATS.ClientName),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithDisconnectHandler(func(error) {
			core.RecordNATSStatus(false)
		}),
		natsclient.WithReconnectHandler(func() {
			core.RecordNATSStatus(true)
			core.RecordNATSReconnect()
		}),
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.Timeout > 0 {
		opts = append(opts, natsclient.WithTimeout(cfg.NATS.Timeout))
	}

	natsClient, err := natsclient.NewClient(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	slog.Info("Connecting to NATS", "url", cfg.NATS.URL)
	if err := natsClient.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	core.RecordNATSStatus(true)

	return natsClient, nil
}

// setupSnapshots ensures the KV bucket exists and restores persisted
// surfaces into the state store. Returns nil when snapshots are disabled.
func setupSnapshots(
	ctx context.Context,
	cfg config.Config,
	natsClient *natsclient.Client,
	surfaces *surface.Store,
	logger *slog.Logger,
) (*surfacestore.SnapshotStore, error) {
	if !cfg.Snapshots.Enabled {
		slog.Info("Surface snapshot persistence disabled")
		return nil, nil
	}

	bucket, err := natsClient.EnsureKVBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Snapshots.Bucket,
		Description: "surface snapshots keyed by surface id",
	})
	if err != nil {
		return nil, fmt.Errorf("ensure snapshot bucket %q: %w", cfg.Snapshots.Bucket, err)
	}

	snapshots := surfacestore.NewSnapshotStore(natsClient.NewKVStore(bucket), logger)
	restored, err := snapshots.RestoreAll(ctx, surfaces)
	if err != nil {
		return nil, fmt.Errorf("restore snapshots: %w", err)
	}
	slog.Info("Surface state restored", "bucket", cfg.Snapshots.Bucket, "surfaces", restored)

	return snapshots, nil
}

// createComponents instantiates every component declared in configuration,
// in declaration order. Processors get the snapshot store wired in.
func createComponents(
	cfg config.Config,
	registry *component.Registry,
	deps component.Dependencies,
	snapshots *surfacestore.SnapshotStore,
) ([]component.LifecycleComponent, error) {
	components := make([]component.LifecycleComponent, 0, len(cfg.Components))

	for _, inst := range cfg.Components {
		comp, err := registry.CreateComponent(inst.Name, inst, deps)
		if err != nil {
			return nil, fmt.Errorf("create component %q: %w", inst.Name, err)
		}

		if proc, ok := comp.(*surfaceproc.Processor); ok && snapshots != nil {
			proc.SetSnapshotStore(snapshots)
		}

		lifecycle, ok := component.AsLifecycleComponent(comp)
		if !ok {
			return nil, fmt.Errorf("component %q does not implement lifecycle", inst.Name)
		}
		components = append(components, lifecycle)

		slog.Info("Created component", "name", inst.Name, "type", inst.Type)
	}

	return components, nil
}

// runWithSignalHandling starts the metrics server and components, then
// blocks until a shutdown signal arrives or the metrics server fails.
func runWithSignalHandling(
	ctx context.Context,
	components []component.LifecycleComponent,
	metricsServer *metric.Server,
	natsClient *natsclient.Client,
	core *metric.Metrics,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	g, gCtx := errgroup.WithContext(signalCtx)
	if metricsServer != nil {
		slog.Info("Metrics server listening", "address", metricsServer.Address())
		g.Go(metricsServer.Start)
		g.Go(func() error {
			<-gCtx.Done()
			return metricsServer.Stop()
		})
	}
	g.Go(func() error {
		sampleNATSRTT(gCtx, natsClient, core)
		return nil
	})

	started := make([]component.LifecycleComponent, 0, len(components))
	for _, comp := range components {
		if err := comp.Initialize(); err != nil {
			stopComponents(started, shutdownTimeout)
			signalCancel()
			_ = g.Wait()
			return fmt.Errorf("initialize components: %w", err)
		}
		if err := comp.Start(signalCtx); err != nil {
			stopComponents(started, shutdownTimeout)
			signalCancel()
			_ = g.Wait()
			return fmt.Errorf("start components: %w", err)
		}
		started = append(started, comp)
	}

	slog.Info("SurfaceStream started", "components", len(started))

	<-gCtx.Done()
	slog.Info("Shutting down")

	stopComponents(started, shutdownTimeout)
	if err := g.Wait(); err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}

	slog.Info("SurfaceStream shutdown complete")
	return nil
}

// sampleNATSRTT periodically samples the NATS round-trip time into the RTT
// gauge. Sampling errors are expected while the connection is down; the
// connected gauge already covers that state.
func sampleNATSRTT(ctx context.Context, natsClient *natsclient.Client, core *metric.Metrics) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if rtt, err := natsClient.RTT(); err == nil {
				core.RecordNATSRTT(rtt)
			}
		}
	}
}

// stopComponents stops components in reverse start order
func stopComponents(components []component.LifecycleComponent, timeout time.Duration) {
	for i := len(components) - 1; i >= 0; i-- {
		if err := components[i].Stop(timeout); err != nil {
			slog.Error("Error stopping component", "error", err)
		}
	}
}
