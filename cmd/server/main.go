package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"perfect-traders-go/internal/config"
	"perfect-traders-go/internal/database"
	"perfect-traders-go/internal/gateway"
	"perfect-traders-go/internal/identity"
	"perfect-traders-go/internal/ledger"
	"perfect-traders-go/internal/logger"
	"perfect-traders-go/internal/market"
	"perfect-traders-go/internal/server"
	"perfect-traders-go/internal/storage"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.OutputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database and the keyed state store on top of it
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")
	store := storage.NewStore(db, log)

	// External service seam (dry-run by default)
	gw := gateway.NewClient(&cfg.Gateway, log)

	// Core state: users/session, symbols, trade ledger
	users := identity.NewStore(store, gw, log)
	registry := market.NewRegistry(store, cfg.Simulator.PriceFloor, log)
	book := ledger.NewLedger(ledger.Config{
		StartingBalance:  cfg.Trading.StartingBalance,
		HistoryCap:       cfg.Trading.HistoryCap,
		BuyCostPerLot:    cfg.Trading.BuyCostPerLot,
		SellCreditPerLot: cfg.Trading.SellCreditPerLot,
	}, registry, store, gw, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// HTTP server and price simulator; ticks fan out to the WS stream
	api := server.NewServer(&cfg.Server, users, registry, book, log)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	interval := time.Duration(cfg.Simulator.TickIntervalMs) * time.Millisecond
	simulator := market.NewSimulator(registry, interval, cfg.Simulator.PriceFloor, rng, log)
	simulator.SetTickCallback(api.Hub().Broadcast)

	api.Start()
	simulator.Run(ctx)

	// Simulator stopped; give in-flight requests a moment to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := api.Stop(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
