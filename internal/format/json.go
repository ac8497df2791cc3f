package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agusgarcia3007/bun-logs/internal/core"

	"github.com/lixenwraith/log"
)

// JSONFormatter produces one machine-readable JSON object per entry
// with a deterministic field order: ts, level, msg, then metadata keys
// in lexical order.
type JSONFormatter struct {
	opts   *Options
	logger *log.Logger
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts *Options, logger *log.Logger) (*JSONFormatter, error) {
	return &JSONFormatter{
		opts:   opts,
		logger: logger,
	}, nil
}

// Format transforms a single entry into a JSON line.
func (f *JSONFormatter) Format(entry core.Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	fmt.Fprintf(&buf, `"ts":%d`, entry.Time.UnixMilli())
	fmt.Fprintf(&buf, `,"level":%q`, entry.Level.String())

	msg, err := json.Marshal(entry.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	buf.WriteString(`,"msg":`)
	buf.Write(msg)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			// Metadata never overrides the standard fields
			if k == "ts" || k == "level" || k == "msg" {
				f.logger.Debug("msg", "Metadata key shadows a standard field, skipped",
					"component", "json_formatter",
					"key", k)
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v, err := json.Marshal(entry.Fields[k])
			if err != nil {
				f.logger.Warn("msg", "Failed to marshal metadata value, skipped",
					"component", "json_formatter",
					"key", k,
					"error", err)
				continue
			}
			// Keys go through the JSON encoder like the message does, so
			// control characters and invalid UTF-8 stay parseable.
			kb, _ := json.Marshal(k)
			buf.WriteByte(',')
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(v)
		}
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// Name returns the formatter's type name.
func (f *JSONFormatter) Name() string {
	return "json"
}
