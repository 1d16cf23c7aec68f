/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the crate ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (flags, config file, DEPOT_* environment)
  2. Build the zap logger and Prometheus registry
  3. Initialize SQLite store and depot engine
  4. Configure HTTP router
  5. Start closing scheduler (if enabled) and server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a config file (optional)
  -port    HTTP server port, overrides config
  -db      SQLite database path, overrides config
           Use ":memory:" for in-memory database

ENVIRONMENT:
  DEPOT_HTTP_PORT, DEPOT_DB_PATH, DEPOT_LOG_LEVEL, DEPOT_APP_ENV,
  DEPOT_LEDGER_STRICT, DEPOT_LEDGER_LOW_STOCK_THRESHOLD,
  DEPOT_CLOSING_SCHEDULER_ENABLED, DEPOT_CLOSING_INTERVAL

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the closing scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/warp/crate-ledger/api"
	"github.com/warp/crate-ledger/config"
	"github.com/warp/crate-ledger/depot"
	"github.com/warp/crate-ledger/logging"
	"github.com/warp/crate-ledger/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "", "Config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.IsDevelopment()})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize store
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer store.Close()

	engine := depot.NewEngine(store, depot.Options{
		Logger:            logging.Component(logger, "depot"),
		Metrics:           depot.NewMetrics(reg),
		Strict:            cfg.Ledger.Strict,
		LowStockThreshold: cfg.Ledger.LowStockThreshold,
	})

	// Store reset backs the demo scenarios; never exposed in production.
	var resetter api.Resetter
	if cfg.IsDevelopment() {
		resetter = store
	}
	handler := api.NewHandler(engine, resetter, logging.Component(logger, "http"))
	router := api.NewRouter(handler, api.RouterOptions{Gatherer: reg})

	scheduler := api.NewClosingScheduler(engine, logging.Component(logger, "scheduler"))
	scheduler.Enabled = cfg.Closing.SchedulerEnabled
	scheduler.CheckInterval = cfg.Closing.Interval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("db", cfg.DB.Path),
			zap.String("env", cfg.App.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
