// PaymentMate - Real-time transaction fraud scoring
package main

import (
	"context"
	"os"

	"github.com/paymentmate/paymentmate/internal/config"
	"github.com/paymentmate/paymentmate/internal/logging"
	"github.com/paymentmate/paymentmate/internal/server"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Create logger
	logger := logging.New("info", "text")

	logger.Info("starting paymentmate",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"flag_threshold", cfg.FlagThreshold,
		"decline_threshold", cfg.DeclineThreshold,
		"history_size", cfg.HistorySize,
	)

	// Create and run server
	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
