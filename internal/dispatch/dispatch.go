// Package dispatch implements the consumer side of the logging
// pipeline: a single goroutine that buffers entries, drains them into
// batches on a size threshold, a timer, or an explicit flush request,
// and reports progress back to the producer over an ack channel.
package dispatch

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/agusgarcia3007/bun-logs/internal/core"

	"github.com/lixenwraith/log"
)

// ErrTerminated is returned for sends attempted after the dispatcher
// has shut down.
var ErrTerminated = errors.New("dispatcher terminated")

// Dispatcher owns the pending-entry buffer, the flush timer, the drop
// fold and the sink. It shares no mutable state with the producer;
// communication is exclusively by message passing.
type Dispatcher struct {
	in     chan Message
	acks   chan Ack
	done   chan struct{}
	logger *log.Logger

	// Statistics
	totalEntries atomic.Uint64
	totalBatches atomic.Uint64
	totalFolded  atomic.Uint64
}

// Stats is a snapshot of the dispatcher's counters.
type Stats struct {
	Entries     uint64
	Batches     uint64
	DropsFolded uint64
}

// New creates a dispatcher and starts its goroutine. queueCap bounds
// the input channel; the ack channel gets the same bound so drains can
// never block on a live producer.
func New(queueCap int, logger *log.Logger) *Dispatcher {
	d := &Dispatcher{
		in:     make(chan Message, queueCap),
		acks:   make(chan Ack, queueCap),
		done:   make(chan struct{}),
		logger: logger,
	}
	go d.run()
	return d
}

// TrySend enqueues a message without blocking. Returns false when the
// queue is full or the dispatcher has terminated.
func (d *Dispatcher) TrySend(m Message) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.in <- m:
		return true
	default:
		return false
	}
}

// Send enqueues a control message, blocking until the dispatcher
// accepts it or has terminated. The input channel stays writable after
// termination (it is buffered and never closed), so the done check
// comes first.
func (d *Dispatcher) Send(m Message) error {
	select {
	case <-d.done:
		return ErrTerminated
	default:
	}
	select {
	case d.in <- m:
		return nil
	case <-d.done:
		return ErrTerminated
	}
}

// Acks returns the consumer→producer acknowledgement channel. It is
// closed when the dispatcher terminates.
func (d *Dispatcher) Acks() <-chan Ack {
	return d.acks
}

// Done is closed once the dispatcher goroutine has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Stats returns a snapshot of the dispatcher's counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Entries:     d.totalEntries.Load(),
		Batches:     d.totalBatches.Load(),
		DropsFolded: d.totalFolded.Load(),
	}
}

// run is the dispatcher's event loop: Uninitialized until the init
// message fixes the configuration, then Ready, alternating with drains
// until a terminate directive arrives.
func (d *Dispatcher) run() {
	defer close(d.done)
	defer close(d.acks)
	defer func() {
		if r := recover(); r != nil {
			// The worker context died; report it and let the logger
			// become inert instead of crashing the host process.
			d.ack(Ack{Kind: AckError, Err: fmt.Errorf("dispatcher failed: %v", r)})
		}
	}()

	var (
		cfg     *Config
		buf     []core.Entry
		dropped uint64
		timer   *time.Timer
		timerC  <-chan time.Time
	)

	stopTimer := func() {
		if timerC == nil {
			return
		}
		if !timer.Stop() {
			<-timer.C
		}
		timerC = nil
	}

	armTimer := func() {
		if timerC != nil {
			return
		}
		if timer == nil {
			timer = time.NewTimer(cfg.FlushInterval)
		} else {
			timer.Reset(cfg.FlushInterval)
		}
		timerC = timer.C
	}

	// drain is the core routine: detach the whole buffer, fold any
	// pending drop count into a synthetic warning at the front, render,
	// write, report. A flush token is answered after the write settles,
	// success or failure alike.
	drain := func(token uint64, hasToken bool) {
		stopTimer()

		if len(buf) == 0 {
			if hasToken {
				d.ack(Ack{Kind: AckFlushed, Token: token})
			}
			return
		}

		// Detach atomically: entries arriving while rendering form the
		// next batch, never this one.
		batch := buf
		buf = nil
		counted := len(batch)

		if dropped > 0 {
			batch = append([]core.Entry{syntheticDropEntry(dropped)}, batch...)
			d.totalFolded.Add(dropped)
			dropped = 0
		}

		chunk := d.render(cfg, batch)

		if err := cfg.Sink.Write(chunk); err != nil {
			d.ack(Ack{Kind: AckError, Err: err})
			if cfg.Fallback != nil {
				if ferr := cfg.Fallback.Write(chunk); ferr != nil {
					d.logger.Error("msg", "Fallback write failed",
						"component", "dispatcher",
						"error", ferr)
				}
			}
		}

		// Counted as processed even when the write failed, so the
		// producer's outstanding counter cannot deadlock. The synthetic
		// warning is excluded; the producer never counted it.
		d.ack(Ack{Kind: AckProcessed, Count: counted})
		d.totalBatches.Add(1)

		if hasToken {
			d.ack(Ack{Kind: AckFlushed, Token: token})
		}
	}

	for {
		select {
		case m := <-d.in:
			switch m.Kind {
			case kindInit:
				if cfg != nil {
					d.logger.Warn("msg", "Duplicate init ignored",
						"component", "dispatcher")
					continue
				}
				cfg = m.Config
			case kindEntry:
				if cfg == nil {
					d.ack(Ack{Kind: AckError, Err: errors.New("entry received before init")})
					continue
				}
				buf = append(buf, m.Entry)
				d.totalEntries.Add(1)
				if len(buf) >= cfg.BatchSize {
					drain(0, false)
				} else {
					armTimer()
				}
			case kindFlush:
				if cfg == nil {
					d.ack(Ack{Kind: AckFlushed, Token: m.Token})
					continue
				}
				drain(m.Token, true)
			case kindDropped:
				dropped += m.Count
			case kindTerminate:
				return
			}
		case <-timerC:
			timerC = nil
			drain(0, false)
		}
	}
}

// render concatenates the per-entry formatter output into one chunk.
// Entries the formatter rejects are skipped, not fatal.
func (d *Dispatcher) render(cfg *Config, batch []core.Entry) []byte {
	var chunk []byte
	for _, e := range batch {
		line, err := cfg.Formatter.Format(e)
		if err != nil {
			d.logger.Warn("msg", "Failed to format entry, skipped",
				"component", "dispatcher",
				"error", err)
			continue
		}
		chunk = append(chunk, line...)
	}
	return chunk
}

func syntheticDropEntry(count uint64) core.Entry {
	return core.Entry{
		Time:    time.Now(),
		Level:   core.LevelWarn,
		Message: fmt.Sprintf("%d log entries dropped due to backpressure", count),
		Fields:  map[string]any{"dropped_count": count},
	}
}

func (d *Dispatcher) ack(a Ack) {
	d.acks <- a
}
