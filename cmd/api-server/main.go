// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

// Command api-server runs the passkey authentication backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/passkeyblog/backend/internal/config"
	"github.com/passkeyblog/backend/internal/rest"
	"github.com/passkeyblog/backend/pkg/logging"
	"github.com/passkeyblog/backend/pkg/metrics"
	"github.com/passkeyblog/backend/pkg/passkey"
	"github.com/passkeyblog/backend/pkg/storage/dynamodb"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "/etc/passkeyblog/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("passkeyblog api-server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Git Commit: %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		os.Exit(0)
	}

	if envConfig := os.Getenv("BLOG_API_CONFIG"); envConfig != "" {
		*configPath = envConfig
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		"storage", cfg.Storage.Backend,
		"rp_id", cfg.Passkey.RPID,
		"port", cfg.Server.Port,
		"version", version)

	store, err := buildStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize credential store", slog.Any("error", err))
		os.Exit(1)
	}

	workflow, err := passkey.NewWorkflow(&cfg.Passkey, store)
	if err != nil {
		logger.Error("Failed to initialize ceremony workflow", slog.Any("error", err))
		os.Exit(1)
	}

	server, err := rest.NewServer(cfg, workflow, logger)
	if err != nil {
		logger.Error("Failed to create server", slog.Any("error", err))
		os.Exit(1)
	}

	shutdownCtx := setupSignalHandler(logger)

	if cfg.Metrics.Enabled {
		metrics.StartResourceCollector(shutdownCtx, 30*time.Second)
	} else {
		metrics.Disable()
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		logger.Error("Server error", slog.Any("error", err))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(stopCtx); err != nil {
		logger.Error("Error during server shutdown", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

// buildStore creates the credential store selected by the configuration.
func buildStore(cfg *config.Config) (passkey.Store, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case config.StorageDynamoDB:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return dynamodb.New(ctx, &cfg.DynamoDB)
	default:
		return passkey.NewMemoryStore(), nil
	}
}

// setupSignalHandler sets up signal handling for graceful shutdown
func setupSignalHandler(logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	return ctx
}
