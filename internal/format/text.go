package format

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/agusgarcia3007/bun-logs/internal/ansi"
	"github.com/agusgarcia3007/bun-logs/internal/core"

	"github.com/lixenwraith/log"
)

// TextFormatter produces human-readable lines:
//
//	LEVEL [timestamp] message key=value ...
//
// wrapped in per-level color escapes when the destination is an
// interactive terminal.
type TextFormatter struct {
	opts   *Options
	logger *log.Logger
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(opts *Options, logger *log.Logger) (*TextFormatter, error) {
	return &TextFormatter{
		opts:   opts,
		logger: logger,
	}, nil
}

// Format renders the entry as one human-readable line.
func (f *TextFormatter) Format(entry core.Entry) ([]byte, error) {
	var buf bytes.Buffer

	var color string
	if f.opts != nil && f.opts.Color {
		color = f.opts.Colors[entry.Level]
	}
	if color != "" {
		buf.WriteString(color)
	}

	buf.WriteString(entry.Level.Padded())
	buf.WriteString(" [")
	buf.WriteString(entry.Time.Format(f.opts.timestampFormat()))
	buf.WriteString("] ")
	buf.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			fmt.Fprintf(&buf, " %s=%v", k, entry.Fields[k])
		}
	}

	if color != "" {
		buf.WriteString(ansi.Reset)
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// Name returns the formatter's type name.
func (f *TextFormatter) Name() string {
	return "text"
}
