package sink

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/lixenwraith/log"
)

// ConsoleSink writes chunks to a standard stream. The underlying
// os.Stdout/os.Stderr handles belong to the process and are never
// closed by the sink.
type ConsoleSink struct {
	dest   string
	output io.Writer
	logger *log.Logger

	// Statistics
	totalChunks atomic.Uint64
	totalBytes  atomic.Uint64
	totalFailed atomic.Uint64
	lastWrite   atomic.Value // time.Time
}

func newConsoleSink(dest string, logger *log.Logger) (*ConsoleSink, error) {
	s := &ConsoleSink{
		dest:   dest,
		logger: logger,
	}
	switch dest {
	case "stdout":
		s.output = os.Stdout
	case "stderr":
		s.output = os.Stderr
	case "discard":
		s.output = io.Discard
	default:
		return nil, fmt.Errorf("unknown console destination: %q", dest)
	}
	s.lastWrite.Store(timeZero)

	return s, nil
}

func (s *ConsoleSink) Write(chunk []byte) error {
	n, err := s.output.Write(chunk)
	if err != nil {
		s.totalFailed.Add(1)
		return fmt.Errorf("write to %s failed: %w", s.dest, err)
	}
	recordWrite(&s.totalChunks, &s.totalBytes, &s.lastWrite, n)
	return nil
}

func (s *ConsoleSink) Name() string {
	return s.dest
}

func (s *ConsoleSink) Stats() Stats {
	return snapshot(s.dest, &s.totalChunks, &s.totalBytes, &s.totalFailed, &s.lastWrite)
}

// Close is a no-op; the process owns its standard streams.
func (s *ConsoleSink) Close() error {
	return nil
}
