package format

import (
	"github.com/agusgarcia3007/bun-logs/internal/core"

	"github.com/lixenwraith/log"
)

// RawFormatter outputs the message as-is with a newline. No timestamp,
// no level, no metadata. Used when the destination already carries
// structure of its own.
type RawFormatter struct {
	logger *log.Logger
}

// NewRawFormatter creates a new raw formatter.
func NewRawFormatter(opts *Options, logger *log.Logger) (*RawFormatter, error) {
	return &RawFormatter{
		logger: logger,
	}, nil
}

// Format returns the message with a newline appended.
func (f *RawFormatter) Format(entry core.Entry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

// Name returns the formatter's type name.
func (f *RawFormatter) Name() string {
	return "raw"
}
