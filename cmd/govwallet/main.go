// Package main is the entry point for the govwallet client engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fd1az/govwallet/business/governance"
	"github.com/fd1az/govwallet/business/transaction"
	txDI "github.com/fd1az/govwallet/business/transaction/di"
	"github.com/fd1az/govwallet/business/wallet"
	walletDI "github.com/fd1az/govwallet/business/wallet/di"
	"github.com/fd1az/govwallet/business/wallet/infra/console"
	"github.com/fd1az/govwallet/internal/apm"
	"github.com/fd1az/govwallet/internal/config"
	"github.com/fd1az/govwallet/internal/di"
	"github.com/fd1az/govwallet/internal/health"
	"github.com/fd1az/govwallet/internal/logger"
	"github.com/fd1az/govwallet/internal/metrics"
	"github.com/fd1az/govwallet/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	quiet := flag.Bool("quiet", false, "Suppress the stdout session observer")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("govwallet %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Observer mode is the default; quiet is for embedding and scripts
	observerMode := !*quiet

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	// Run application
	if err := run(ctx, *configPath, observerMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, observerMode bool) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
	log.Info(ctx, "starting govwallet",
		"version", version,
		"environment", cfg.App.Environment,
	)

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		// Set service name env var for OTEL
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		// Initialize tracing with Zipkin (local dev friendly)
		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		// Initialize metrics with Prometheus, mirrored to an OTLP
		// collector when one is configured
		metricOpts := []metrics.OptionFn{
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			metricOpts = append(metricOpts, metrics.WithProviderConfig(
				metrics.NewOtelCollectorConfig(cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.OTLPHeaderMap(), true),
			))
		}
		metrics.NewMetricProvider(metricOpts...)

		// Start Prometheus metrics server in background
		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Start health check server on port 8081
	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	// Create monolith (application container)
	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Define modules in dependency order
	modules := []monolith.Module{
		&wallet.Module{},      // Must be first - owns the provider session
		&transaction.Module{}, // Depends on wallet for replacement submission
		&governance.Module{},  // Depends on transaction for contract reads
	}

	// Register all module services
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	// Start modules
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	// Close module-owned resources on the way out: event fan-out first,
	// then the wallet socket and chain reader.
	defer func() {
		_ = walletDI.GetBridge(mono.Services()).Close()
		if c, ok := walletDI.GetProvider(mono.Services()).(io.Closer); ok {
			_ = c.Close()
		}
		txDI.GetEstimatorService(mono.Services()).Close()
		if c, ok := txDI.GetChainReader(mono.Services()).(io.Closer); ok {
			_ = c.Close()
		}
	}()

	// Readiness follows the two session surfaces: the wallet transport
	// and the chain RPC behind reads.
	healthServer.RegisterCheck("wallet_provider", func(ctx context.Context) (bool, string) {
		if !walletDI.GetProvider(mono.Services()).IsAvailable() {
			return false, "no provider transport available"
		}
		return true, ""
	})
	healthServer.RegisterCheck("chain_rpc", func(ctx context.Context) (bool, string) {
		if _, err := txDI.GetChainReader(mono.Services()).BlockNumber(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	})

	if observerMode {
		return runObserver(ctx, mono.Services(), log)
	}

	log.Info(ctx, "all modules started")
	<-ctx.Done()
	log.Info(ctx, "shutting down")
	return nil
}

// runObserver prints wallet lifecycle events to stdout until shutdown.
func runObserver(ctx context.Context, services di.ServiceRegistry, log *logger.Logger) error {
	bridge := walletDI.GetBridge(services)
	sub, ch := bridge.Subscribe()
	defer bridge.Unsubscribe(sub)

	reporter := console.NewReporter()
	if err := reporter.Start(ctx, ch); err != nil {
		return fmt.Errorf("failed to start observer: %w", err)
	}

	log.Info(ctx, "all modules started, observing wallet session")

	// Wait for shutdown
	<-ctx.Done()

	log.Info(ctx, "shutting down")
	reporter.Stop()
	return nil
}
