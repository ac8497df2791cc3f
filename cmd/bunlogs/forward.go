package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	bunlogs "github.com/agusgarcia3007/bun-logs"

	"golang.org/x/time/rate"
)

// forwardStdin pushes each stdin line through the pipeline as one
// entry. Returns on EOF or context cancellation.
func forwardStdin(ctx context.Context, logger *bunlogs.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("stdin read failed: %w", err)
					}
				default:
				}
				return nil
			}
			logger.Info(line)
		case <-ctx.Done():
			return nil
		}
	}
}

// runDemo generates synthetic entries at the configured rate.
func runDemo(ctx context.Context, logger *bunlogs.Logger, cfg demoConfig) error {
	limiter := rate.NewLimiter(rate.Limit(cfg.Rate), 1)

	for i := 0; cfg.Count == 0 || i < cfg.Count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil // cancelled
		}
		logger.Info("demo entry", map[string]any{
			"seq": i,
			"pid": os.Getpid(),
		})
	}
	return nil
}
