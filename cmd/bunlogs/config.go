package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

// appConfig is the forwarder's layered configuration: defaults, then
// TOML file, then environment, then CLI arguments.
type appConfig struct {
	Level           string     `toml:"level"`
	BatchSize       int        `toml:"batch_size"`
	FlushIntervalMs int        `toml:"flush_interval_ms"`
	Format          string     `toml:"format"`
	Destination     string     `toml:"destination"`
	MaxQueueSize    int        `toml:"max_queue_size"`
	Quiet           bool       `toml:"quiet"`
	Demo            demoConfig `toml:"demo"`
}

// demoConfig drives the synthetic entry generator used for trying out
// destinations and formats without a real log source.
type demoConfig struct {
	Enabled bool    `toml:"enabled"`
	Rate    float64 `toml:"rate"`  // entries per second
	Count   int     `toml:"count"` // 0 means run until interrupted
}

func defaults() *appConfig {
	return &appConfig{
		Level:           "info",
		BatchSize:       64,
		FlushIntervalMs: 200,
		Format:          "raw",
		Destination:     "stdout",
		MaxQueueSize:    2048,
		Demo: demoConfig{
			Rate:  10,
			Count: 0,
		},
	}
}

func loadConfig(cliArgs []string) (*appConfig, error) {
	configPath := getConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix("BUNLOGS_").
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &appConfig{}
	if err := cfg.Scan(finalConfig); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, finalConfig.validate()
}

func (c *appConfig) validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("max_queue_size must be positive, got %d", c.MaxQueueSize)
	}
	if c.Demo.Enabled && c.Demo.Rate <= 0 {
		return fmt.Errorf("demo.rate must be positive, got %v", c.Demo.Rate)
	}
	return nil
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = "BUNLOGS_" + env
	return env
}

func getConfigPath() string {
	if configFile := os.Getenv("BUNLOGS_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("BUNLOGS_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}
	return "bunlogs.toml"
}
