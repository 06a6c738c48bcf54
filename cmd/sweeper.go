package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vkotelnikov/eduplatform/internal"
	"github.com/vkotelnikov/eduplatform/internal/payment"
)

// sweeperCmd runs the stale-payment sweep as a standalone process, for
// deployments that want cleanup separated from the API server.
var sweeperCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Remove stale pending payments",
	Long:  `Periodically delete pending payments and purchases older than the configured max age.`,
	Run: func(cmd *cobra.Command, args []string) {
		startSweeper()
	},
}

func startSweeper() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Received signal, stopping sweeper...", "signal", sig)
		cancel()
	}()

	runSweepLoop(ctx, deps.PaymentService, deps.Config.Sweeper, deps.Logger)
}

func runSweepLoop(ctx context.Context, svc *payment.Service, cfg internal.SweeperConfig, logger *slog.Logger) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	logger.Info("stale payment sweeper started", "interval", interval, "max_age", maxAge)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stale payment sweeper stopped")
			return
		case <-ticker.C:
			if _, err := svc.SweepStale(ctx, maxAge); err != nil {
				logger.Error("sweep iteration failed", "error", err)
			}
		}
	}
}
