package format

import (
	"fmt"
	"time"

	"github.com/agusgarcia3007/bun-logs/internal/core"

	"github.com/lixenwraith/log"
)

// Formatter renders a single entry into its textual form. Rendering is
// line-oriented: one entry in, exactly one newline-terminated line out.
type Formatter interface {
	// Format transforms an entry into a newline-terminated byte slice.
	Format(entry core.Entry) ([]byte, error)

	// Name returns the formatter type name
	Name() string
}

// Options carries the rendering configuration shared by the formatters.
// Resolved once at construction.
type Options struct {
	// TimestampFormat is the layout used by the text formatter.
	TimestampFormat string

	// Color enables per-level color escapes in text mode. It is set
	// only when the destination is an interactive terminal.
	Color bool

	// Colors maps each level to a resolved escape sequence. Only
	// consulted when Color is true.
	Colors map[core.Level]string
}

func (o *Options) timestampFormat() string {
	if o == nil || o.TimestampFormat == "" {
		return time.RFC3339Nano
	}
	return o.TimestampFormat
}

// New creates a Formatter by mode name.
func New(name string, opts *Options, logger *log.Logger) (Formatter, error) {
	// Default to structured output if no format specified
	if name == "" {
		name = "json"
	}

	switch name {
	case "json", "structured":
		return NewJSONFormatter(opts, logger)
	case "text", "txt":
		return NewTextFormatter(opts, logger)
	case "raw":
		return NewRawFormatter(opts, logger)
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", name)
	}
}
