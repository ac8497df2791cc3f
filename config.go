package bunlogs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agusgarcia3007/bun-logs/internal/ansi"
	"github.com/agusgarcia3007/bun-logs/internal/core"

	"github.com/lixenwraith/log"
	"golang.org/x/term"
)

// Level is the severity of a log entry.
type Level = core.Level

const (
	LevelDebug = core.LevelDebug
	LevelInfo  = core.LevelInfo
	LevelWarn  = core.LevelWarn
	LevelError = core.LevelError
)

// ParseLevel converts a level name ("debug", "info", "warn", "error")
// to a Level.
func ParseLevel(s string) (Level, error) {
	return core.ParseLevel(s)
}

// Config controls a Logger. All fields are resolved once at
// construction and never mutated afterwards. The zero value gives a
// JSON logger on stdout with the documented defaults.
type Config struct {
	// Level is the minimum severity accepted. Entries below it are
	// silently discarded on the producer side. Default: LevelInfo.
	Level Level

	// BatchSize is the buffer length that triggers an immediate drain.
	// Default: 64.
	BatchSize int

	// FlushInterval is the time trigger: a partial batch drains once
	// this much time passes with entries pending. Default: 200ms.
	FlushInterval time.Duration

	// Format selects the render mode: "json" (structured), "text"
	// (human-readable) or "raw". Default: "json".
	Format string

	// Destination selects the sink: "stdout", "stderr", "discard",
	// "fd:N", an http(s) URL, or a file path. Default: "stdout".
	Destination string

	// MaxQueueSize bounds the producer-side outstanding-entry count;
	// posts beyond it are dropped and counted. Default: 2048.
	MaxQueueSize int

	// OnError receives backpressure-drop notifications (rate-limited:
	// first drop and every 100th thereafter), write failures and
	// dispatcher failures. May be called from multiple goroutines and
	// must not block. Default: prints to stderr with a "bunlogs:" prefix.
	OnError func(error)

	// Colors overrides the per-level color table in text mode, keyed
	// by level name. Unknown names fall back to the defaults. Merged
	// once at construction.
	Colors map[string]string

	// ForceTTY overrides terminal auto-detection for color output.
	ForceTTY *bool

	// NoSignalHook disables the automatic Close on SIGINT/SIGTERM.
	NoSignalHook bool

	// Diag receives the pipeline's own diagnostics. Defaults to an
	// inert logger.
	Diag *log.Logger
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = core.DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = core.DefaultFlushInterval
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if c.Destination == "" {
		c.Destination = "stdout"
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = core.DefaultMaxQueueSize
	}
	if c.OnError == nil {
		c.OnError = func(err error) {
			fmt.Fprintf(os.Stderr, "bunlogs: %v\n", err)
		}
	}
	if c.Diag == nil {
		c.Diag = log.NewLogger()
	}
	return c
}

// mergeColors resolves user overrides against the built-in color table.
func mergeColors(overrides map[string]string) map[core.Level]string {
	return ansi.LevelColors(overrides)
}

// isTTY reports whether the destination is an interactive terminal,
// honoring the ForceTTY override. Standard streams and inherited
// descriptors are probed; files and remote endpoints never are.
func (c Config) isTTY() bool {
	if c.ForceTTY != nil {
		return *c.ForceTTY
	}
	switch {
	case c.Destination == "stdout":
		return term.IsTerminal(int(os.Stdout.Fd()))
	case c.Destination == "stderr":
		return term.IsTerminal(int(os.Stderr.Fd()))
	case strings.HasPrefix(c.Destination, "fd:"):
		fd, err := strconv.Atoi(strings.TrimPrefix(c.Destination, "fd:"))
		if err != nil || fd < 0 {
			return false
		}
		return term.IsTerminal(fd)
	default:
		return false
	}
}
