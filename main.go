package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chunkcast/chunkcast/cmd"
	"github.com/chunkcast/chunkcast/internal/config"
	"github.com/chunkcast/chunkcast/internal/logging"
	"github.com/chunkcast/chunkcast/internal/metrics"
)

func main() {
	ctx, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(ctx.Settings)

	if ctx.Settings.Metrics.Enabled {
		server := metrics.NewServer(ctx.Settings.Metrics.Addr, prometheus.DefaultGatherer)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logging.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	rootCmd := cmd.RootCommand(ctx.Settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
