package dispatch

import (
	"time"

	"github.com/agusgarcia3007/bun-logs/internal/core"
	"github.com/agusgarcia3007/bun-logs/internal/format"
	"github.com/agusgarcia3007/bun-logs/internal/sink"
)

// The producer/consumer control protocol. Producer→consumer messages
// travel on the dispatcher's input channel, consumer→producer
// acknowledgements on its ack channel. Both directions are FIFO.

type msgKind uint8

const (
	kindInit msgKind = iota
	kindEntry
	kindFlush
	kindDropped
	kindTerminate
)

// Message is one producer→consumer control message.
type Message struct {
	Kind   msgKind
	Config *Config    // kindInit
	Entry  core.Entry // kindEntry
	Token  uint64     // kindFlush
	Count  uint64     // kindDropped
}

// Init fixes the dispatcher configuration. Must be the first message.
func Init(cfg *Config) Message {
	return Message{Kind: kindInit, Config: cfg}
}

// NewEntry carries one accepted log entry.
func NewEntry(e core.Entry) Message {
	return Message{Kind: kindEntry, Entry: e}
}

// Flush requests a drain; the token is echoed back on the matching
// AckFlushed once the drain completes.
func Flush(token uint64) Message {
	return Message{Kind: kindFlush, Token: token}
}

// Dropped reports entries rejected by producer-side backpressure since
// the last report. The count is folded into the next batch as a single
// synthetic warning entry.
func Dropped(count uint64) Message {
	return Message{Kind: kindDropped, Count: count}
}

// Terminate shuts the dispatcher down irrevocably.
func Terminate() Message {
	return Message{Kind: kindTerminate}
}

// AckKind discriminates consumer→producer acknowledgements.
type AckKind uint8

const (
	// AckProcessed reports how many producer-counted entries a drain
	// wrote (or intentionally gave up on after a write failure).
	AckProcessed AckKind = iota

	// AckFlushed answers a flush request, echoing its token.
	AckFlushed

	// AckError reports a write or dispatcher failure.
	AckError
)

// Ack is one consumer→producer acknowledgement.
type Ack struct {
	Kind  AckKind
	Count int
	Token uint64
	Err   error
}

// Config fixes the dispatcher's behavior at init time. Immutable for
// the dispatcher's lifetime.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	Formatter     format.Formatter
	Sink          sink.Sink

	// Fallback receives one best-effort copy of a chunk whose primary
	// write failed. Set only when the primary is the default stream.
	Fallback sink.Sink
}
