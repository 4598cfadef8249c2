package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fundsync/internal/api"
	"fundsync/internal/chain"
	"fundsync/internal/config"
	"fundsync/internal/escrow"
	"fundsync/internal/reconciler"
	"fundsync/internal/retry"
	"fundsync/internal/storage"

	"github.com/joho/godotenv"
	rpcclient "github.com/stellar/go/clients/rpcclient"
)

func main() {
	// 1. Load configuration
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Configure logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Configuration loaded",
		"rpc_server", cfg.RPCServerURL,
		"http_port", cfg.HTTPPort,
		"poll_interval", cfg.PollInterval,
		"log_level", cfg.LogLevel,
	)

	ctx := context.Background()

	// 3. Initialize the mirror store
	var repository storage.Repository
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := pg.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		repository = pg
		slog.Info("Database connected successfully")
	} else {
		repository = storage.NewMemoryRepository()
		slog.Warn("DATABASE_URL not set, using in-memory mirror store")
	}
	defer repository.Close()

	// 4. Create the RPC client and seed the checkpoint tip
	rpcClient := rpcclient.NewClient(cfg.RPCServerURL, &http.Client{})
	tipSource := chain.NewRPCTipSource(rpcClient)

	tip, err := tipSource.CurrentCheckpoint(ctx)
	if err != nil {
		log.Fatalf("Failed to get checkpoint tip from RPC: %v", err)
	}
	cachedTip := chain.NewCachedTip(tip)
	slog.Info("Checkpoint tip seeded", "tip", tip)

	// 5. Create the escrow ledger. The escrow program runs in-process against
	// the cached tip; its submissions settle through the reconciler exactly
	// like a remote ledger's would.
	program := escrow.NewProgram(
		escrow.NewMapCampaignStore(),
		escrow.NewMapContributionStore(),
		escrow.NewMapBalances(),
		cachedTip,
	)
	ledger := chain.NewProgramLedger(program)

	// 6. Create the reconciliation engine
	engine := reconciler.New(ledger, repository)

	// 7. Start the API server
	server := api.NewServer(cfg.HTTPPort, repository, ledger, engine)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	// 8. Start the checkpoint watcher
	strategy := retry.NewStrategy(cfg.RetryEnabled, cfg.RetryMaxAttempts, cfg.RetryInitialDelay, cfg.RetryMaxDelay)
	watcher := chain.NewWatcher(tipSource, cachedTip, engine, cfg.PollInterval, strategy)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		if err := watcher.Start(watchCtx); err != nil && err != context.Canceled {
			errChan <- err
		}
	}()

	// 9. Wait for interrupt or watcher error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		slog.Warn("Interrupt received, shutting down...")
		cancel()
	case err := <-errChan:
		slog.Error("Checkpoint watcher error", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down API server", "error", err)
	}

	slog.Info("Fundsync stopped")
}
