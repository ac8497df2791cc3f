package sink

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lixenwraith/log"
)

// DefaultDestination is the primary stream used when no destination is
// configured. Write failures against it get one best-effort fallback
// attempt on stderr; every other destination fails without fallback.
const DefaultDestination = "stdout"

// Sink is an output destination that persists a rendered chunk. A sink
// owns exactly one open handle for its destination; the dispatcher is
// the only writer.
type Sink interface {
	// Write persists one rendered chunk.
	Write(chunk []byte) error

	// Name returns the sink type name
	Name() string

	// Stats returns a snapshot of the sink's counters
	Stats() Stats

	// Close releases the destination handle. Idempotent.
	Close() error
}

// Stats contains statistics about a sink
type Stats struct {
	Destination string
	Chunks      uint64
	Bytes       uint64
	Failed      uint64
	LastWrite   time.Time
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]Sink)
)

// Open resolves a destination descriptor to a sink. Opens are
// idempotent: repeated opens of the same descriptor return the cached
// handle, so a file destination is never reopened per write. Recognized
// descriptors:
//
//	"stdout", "stderr"      standard streams
//	"discard"               drops every chunk (benchmarks)
//	"fd:N"                  an inherited raw file descriptor
//	"http://", "https://"   remote collector endpoint
//	anything else           a file path, opened once with append semantics
func Open(dest string, logger *log.Logger) (Sink, error) {
	if dest == "" {
		dest = DefaultDestination
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if s, ok := registry[dest]; ok {
		return s, nil
	}

	s, err := open(dest, logger)
	if err != nil {
		return nil, err
	}
	registry[dest] = s
	return s, nil
}

func open(dest string, logger *log.Logger) (Sink, error) {
	switch {
	case dest == "stdout" || dest == "stderr" || dest == "discard":
		return newConsoleSink(dest, logger)
	case strings.HasPrefix(dest, "fd:"):
		fd, err := strconv.Atoi(strings.TrimPrefix(dest, "fd:"))
		if err != nil || fd < 0 {
			return nil, fmt.Errorf("invalid file descriptor destination: %q", dest)
		}
		return newDescriptorSink(dest, fd, logger)
	case strings.HasPrefix(dest, "http://") || strings.HasPrefix(dest, "https://"):
		return newHTTPSink(dest, logger)
	default:
		return newFileSink(dest, logger)
	}
}

// forget removes a closed sink from the open cache so a later Open can
// re-establish the handle.
func forget(dest string) {
	registryMu.Lock()
	delete(registry, dest)
	registryMu.Unlock()
}
