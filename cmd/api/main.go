package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmossdk.io/log"

	"github.com/openalpha/yield-vault/api"
)

func main() {
	configPath := flag.String("config", "config/vault-api.yaml", "Path to the YAML config")
	port := flag.Int("port", 0, "Override server port")
	benchMode := flag.Bool("bench", false, "Disable rate limiting")
	flag.Parse()

	logger := log.NewLogger(os.Stderr)

	cfg, err := api.LoadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *benchMode {
		logger.Info("Benchmark mode: rate limiting disabled")
		cfg.Server.DisableRateLimit = true
	}

	server, err := api.NewServer(cfg, logger)
	if err != nil {
		logger.Error("create server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("Vault API started",
		"rest", "/v1/vault",
		"websocket", "/ws",
		"metrics", "/metrics",
		"admin", cfg.Vault.Admin,
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error("server shutdown", "error", err)
	}

	logger.Info("Server exited")
}
