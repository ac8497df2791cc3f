// Command bunlogs is a line forwarder built on the bunlogs pipeline:
// it reads lines from stdin (or generates synthetic entries in demo
// mode) and pushes them through the batching sink towards the
// configured destination.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	bunlogs "github.com/agusgarcia3007/bun-logs"
	"github.com/agusgarcia3007/bun-logs/internal/version"

	"github.com/lixenwraith/log"
)

var diag *log.Logger

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-v" {
			fmt.Println(version.String())
			os.Exit(0)
		}
	}

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := initDiagLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer shutdownDiagLogger()

	level, err := bunlogs.ParseLevel(cfg.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sinkLogger, err := bunlogs.New(bunlogs.Config{
		Level:         level,
		BatchSize:     cfg.BatchSize,
		FlushInterval: time.Duration(cfg.FlushIntervalMs) * time.Millisecond,
		Format:        cfg.Format,
		Destination:   cfg.Destination,
		MaxQueueSize:  cfg.MaxQueueSize,
		NoSignalHook:  true, // signals are handled here
		Diag:          diag,
		OnError: func(err error) {
			diag.Error("msg", "Pipeline error", "error", err)
		},
	})
	if err != nil {
		diag.Error("msg", "Failed to create sink", "error", err)
		os.Exit(1)
	}

	diag.Info("msg", "bunlogs starting",
		"version", version.String(),
		"destination", cfg.Destination,
		"format", cfg.Format,
		"demo", cfg.Demo.Enabled)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srcDone := make(chan error, 1)
	go func() {
		if cfg.Demo.Enabled {
			srcDone <- runDemo(ctx, sinkLogger, cfg.Demo)
		} else {
			srcDone <- forwardStdin(ctx, sinkLogger)
		}
	}()

	select {
	case sig := <-sigChan:
		diag.Info("msg", "Shutdown signal received", "signal", sig.String())
		cancel()
		<-srcDone
	case err := <-srcDone:
		if err != nil {
			diag.Error("msg", "Source failed", "error", err)
		}
	}

	// Drain and terminate with a bounded wait
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		sinkLogger.Close()
		close(done)
	}()

	select {
	case <-done:
		stats := sinkLogger.Stats()
		diag.Info("msg", "Shutdown complete",
			"posted", stats.Posted,
			"dropped", stats.Dropped,
			"batches", stats.Batches,
			"bytes_written", stats.BytesWritten)
	case <-shutdownCtx.Done():
		diag.Error("msg", "Shutdown timeout exceeded - forcing exit")
		os.Exit(1)
	}
}

func initDiagLogger(cfg *appConfig) error {
	diag = log.NewLogger()

	if cfg.Quiet {
		return diag.ApplyConfigString(
			"disable_file=true",
			"enable_console=false",
			"level=255")
	}

	return diag.ApplyConfigString(
		"disable_file=true",
		"enable_console=true",
		"console_target=stderr")
}

func shutdownDiagLogger() {
	if diag != nil {
		if err := diag.Shutdown(2 * time.Second); err != nil {
			fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
		}
	}
}
