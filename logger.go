package bunlogs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agusgarcia3007/bun-logs/internal/core"
	"github.com/agusgarcia3007/bun-logs/internal/dispatch"
	"github.com/agusgarcia3007/bun-logs/internal/format"
	"github.com/agusgarcia3007/bun-logs/internal/sink"
)

// ErrClosed is returned by Flush after Close, and resolves flushes
// still pending when the dispatcher terminates.
var ErrClosed = errors.New("logger closed")

// closeTimeout bounds how long Close waits for the final flush and the
// dispatcher teardown. This is an operational bound on shutdown
// latency, not a durability guarantee.
const closeTimeout = 5 * time.Second

// queueHeadroom is extra channel capacity beyond MaxQueueSize so
// control messages and the benign race on the backpressure predicate
// never make an accepted send block.
const queueHeadroom = 64

// Logger is the producer-side facade of the pipeline. Log methods
// never block: entries either cross the channel to the dispatcher or
// are dropped and counted. Flush and Close are the only suspension
// points.
type Logger struct {
	minLevel core.Level
	maxQueue int64
	onError  func(error)

	disp *dispatch.Dispatcher
	snk  sink.Sink

	// outstanding is the number of accepted entries not yet reported
	// processed. Clamped at zero to tolerate reordered acks.
	outstanding atomic.Int64

	// dropped counts rejections in the current overflow window. It is
	// monotonic across the window and resets only when transmitted to
	// the dispatcher for folding into a batch.
	dropped atomic.Uint64

	totalPosted  atomic.Uint64
	totalDropped atomic.Uint64

	nextToken atomic.Uint64
	pendingMu sync.Mutex
	pending   map[uint64]chan error

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	ackDone chan struct{}
	sigStop func()
}

// New constructs a Logger, opens the destination, starts the
// dispatcher and pushes its configuration across the channel before
// any entry is accepted.
func New(cfg Config) (*Logger, error) {
	cfg = cfg.withDefaults()

	s, err := sink.Open(cfg.Destination, cfg.Diag)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination: %w", err)
	}

	opts := &format.Options{
		Color:  cfg.isTTY(),
		Colors: mergeColors(cfg.Colors),
	}
	f, err := format.New(cfg.Format, opts, cfg.Diag)
	if err != nil {
		return nil, err
	}

	// One best-effort fallback stream, only for the default primary.
	var fallback sink.Sink
	if cfg.Destination == sink.DefaultDestination {
		fallback, _ = sink.Open("stderr", cfg.Diag)
	}

	d := dispatch.New(cfg.MaxQueueSize+queueHeadroom, cfg.Diag)
	if err := d.Send(dispatch.Init(&dispatch.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		Formatter:     f,
		Sink:          s,
		Fallback:      fallback,
	})); err != nil {
		return nil, fmt.Errorf("failed to start dispatcher: %w", err)
	}

	l := &Logger{
		minLevel: cfg.Level,
		maxQueue: int64(cfg.MaxQueueSize),
		onError:  cfg.OnError,
		disp:     d,
		snk:      s,
		pending:  make(map[uint64]chan error),
		ackDone:  make(chan struct{}),
	}
	go l.readAcks()

	if !cfg.NoSignalHook {
		l.sigStop = l.hookSignals()
	}

	return l, nil
}

// Debug logs a message at debug level. Never blocks.
func (l *Logger) Debug(msg string, fields ...map[string]any) {
	l.post(core.LevelDebug, msg, fields)
}

// Info logs a message at info level. Never blocks.
func (l *Logger) Info(msg string, fields ...map[string]any) {
	l.post(core.LevelInfo, msg, fields)
}

// Warn logs a message at warn level. Never blocks.
func (l *Logger) Warn(msg string, fields ...map[string]any) {
	l.post(core.LevelWarn, msg, fields)
}

// Error logs a message at error level. Never blocks.
func (l *Logger) Error(msg string, fields ...map[string]any) {
	l.post(core.LevelError, msg, fields)
}

func (l *Logger) post(level core.Level, msg string, fields []map[string]any) {
	if l.closed.Load() {
		return
	}
	if level < l.minLevel {
		return
	}
	if l.outstanding.Load() >= l.maxQueue {
		l.drop()
		return
	}

	e := core.Entry{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Fields:  copyFields(fields),
	}

	l.outstanding.Add(1)
	l.transmitDrops()
	if !l.disp.TrySend(dispatch.NewEntry(e)) {
		// Channel full past the predicate's headroom; same as a
		// backpressure rejection.
		l.decOutstanding(1)
		l.drop()
		return
	}
	l.totalPosted.Add(1)
}

// drop counts one rejected entry and fires the rate-limited callback:
// drop #1 of the window and every 100th thereafter, no others.
func (l *Logger) drop() {
	l.totalDropped.Add(1)
	n := l.dropped.Add(1)
	if n == 1 || n%core.DropNotifyInterval == 0 {
		l.reportError(fmt.Errorf("dropped %d entries: queue full (max %d outstanding)", n, l.maxQueue))
	}
}

// transmitDrops hands the accumulated drop count to the dispatcher so
// it is folded into the next batch. Sent before the message that
// follows it on the same channel, so the fold can never miss a flush
// it precedes.
func (l *Logger) transmitDrops() {
	if d := l.dropped.Swap(0); d > 0 {
		if !l.disp.TrySend(dispatch.Dropped(d)) {
			l.dropped.Add(d)
		}
	}
}

// Flush requests a drain of everything accepted before this call and
// waits for the dispatcher's acknowledgement. Overlapping flushes each
// get their own token and resolve independently. The returned error
// reflects delivery of the flush request, not write durability.
func (l *Logger) Flush(ctx context.Context) error {
	if l.closed.Load() {
		return ErrClosed
	}
	return l.flush(ctx)
}

func (l *Logger) flush(ctx context.Context) error {
	token := l.nextToken.Add(1)
	ch := make(chan error, 1)

	l.pendingMu.Lock()
	l.pending[token] = ch
	l.pendingMu.Unlock()

	l.transmitDrops()
	if err := l.disp.Send(dispatch.Flush(token)); err != nil {
		l.forget(token)
		return err
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		l.forget(token)
		return ctx.Err()
	}
}

// Close flushes once, terminates the dispatcher and releases the
// destination handle. Idempotent; later Log calls are no-ops. Total
// shutdown latency is bounded by closeTimeout.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)

		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		l.closeErr = l.flush(ctx)

		if err := l.disp.Send(dispatch.Terminate()); err == nil {
			select {
			case <-l.ackDone:
				// Dispatcher exited and the ack reader drained; the
				// handle is quiescent and safe to release.
				l.snk.Close()
			case <-ctx.Done():
				// Dispatcher wedged on a blocking write; leave the
				// handle to the process.
			}
		}

		if l.sigStop != nil {
			l.sigStop()
		}
	})
	return l.closeErr
}

// readAcks drains the consumer→producer channel: processed counts
// decrement the outstanding counter, flush acks resolve their pending
// continuation, errors go to the callback. Exits when the dispatcher
// terminates, failing any still-pending flushes.
func (l *Logger) readAcks() {
	defer func() {
		l.pendingMu.Lock()
		for token, ch := range l.pending {
			delete(l.pending, token)
			ch <- ErrClosed
		}
		l.pendingMu.Unlock()
		close(l.ackDone)
	}()

	for ack := range l.disp.Acks() {
		switch ack.Kind {
		case dispatch.AckProcessed:
			l.decOutstanding(int64(ack.Count))
		case dispatch.AckFlushed:
			l.resolve(ack.Token)
		case dispatch.AckError:
			l.reportError(ack.Err)
		}
	}
}

// resolve answers the pending flush continuation for token, if any.
func (l *Logger) resolve(token uint64) {
	l.pendingMu.Lock()
	ch, ok := l.pending[token]
	delete(l.pending, token)
	l.pendingMu.Unlock()
	if ok {
		ch <- nil
	}
}

// forget abandons a pending flush whose caller gave up on it.
func (l *Logger) forget(token uint64) {
	l.pendingMu.Lock()
	delete(l.pending, token)
	l.pendingMu.Unlock()
}

func (l *Logger) decOutstanding(n int64) {
	for {
		cur := l.outstanding.Load()
		next := cur - n
		if next < 0 {
			next = 0
		}
		if l.outstanding.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (l *Logger) reportError(err error) {
	if err == nil {
		return
	}
	l.onError(err)
}

// Stats is a point-in-time snapshot of the pipeline's counters.
type Stats struct {
	Posted        uint64
	Dropped       uint64
	Outstanding   int64
	Batches       uint64
	DropsFolded   uint64
	ChunksWritten uint64
	BytesWritten  uint64
	WriteFailures uint64
	LastWrite     time.Time
}

// Stats returns a snapshot of the facade, dispatcher and sink counters.
func (l *Logger) Stats() Stats {
	ds := l.disp.Stats()
	ss := l.snk.Stats()
	return Stats{
		Posted:        l.totalPosted.Load(),
		Dropped:       l.totalDropped.Load(),
		Outstanding:   l.outstanding.Load(),
		Batches:       ds.Batches,
		DropsFolded:   ds.DropsFolded,
		ChunksWritten: ss.Chunks,
		BytesWritten:  ss.Bytes,
		WriteFailures: ss.Failed,
		LastWrite:     ss.LastWrite,
	}
}

// copyFields flattens the variadic maps into one snapshot; later maps
// win on duplicate keys.
func copyFields(fields []map[string]any) map[string]any {
	total := 0
	for _, m := range fields {
		total += len(m)
	}
	if total == 0 {
		return nil
	}
	// The dispatcher owns the entry once it crosses the channel; a copy
	// keeps later caller mutations from racing the render.
	cp := make(map[string]any, total)
	for _, m := range fields {
		for k, v := range m {
			cp[k] = v
		}
	}
	return cp
}
