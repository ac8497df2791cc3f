package dispatch

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agusgarcia3007/bun-logs/internal/core"
	"github.com/agusgarcia3007/bun-logs/internal/format"
	"github.com/agusgarcia3007/bun-logs/internal/sink"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

// captureSink records every chunk it receives and can be told to fail.
type captureSink struct {
	mu     sync.Mutex
	chunks []string
	fail   bool
}

func (c *captureSink) Write(chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("destination unavailable")
	}
	c.chunks = append(c.chunks, string(chunk))
	return nil
}

func (c *captureSink) Name() string      { return "capture" }
func (c *captureSink) Stats() sink.Stats { return sink.Stats{} }
func (c *captureSink) Close() error      { return nil }

func (c *captureSink) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.chunks...)
}

func rawFormatter(t *testing.T) format.Formatter {
	t.Helper()
	f, err := format.New("raw", nil, newTestLogger())
	require.NoError(t, err)
	return f
}

func entry(msg string) Message {
	return NewEntry(core.Entry{
		Time:    time.Now(),
		Level:   core.LevelInfo,
		Message: msg,
	})
}

// nextAck reads one acknowledgement with a timeout.
func nextAck(t *testing.T, d *Dispatcher) Ack {
	t.Helper()
	select {
	case a, ok := <-d.Acks():
		require.True(t, ok, "ack channel closed unexpectedly")
		return a
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ack")
		return Ack{}
	}
}

func startDispatcher(t *testing.T, cs *captureSink, batchSize int, interval time.Duration) *Dispatcher {
	t.Helper()
	d := New(128, newTestLogger())
	require.NoError(t, d.Send(Init(&Config{
		BatchSize:     batchSize,
		FlushInterval: interval,
		Formatter:     rawFormatter(t),
		Sink:          cs,
	})))
	t.Cleanup(func() {
		d.Send(Terminate())
		select {
		case <-d.Done():
		case <-time.After(5 * time.Second):
			t.Error("dispatcher did not terminate")
		}
	})
	return d
}

func TestSizeTrigger(t *testing.T) {
	cs := &captureSink{}
	d := startDispatcher(t, cs, 2, time.Hour)

	require.NoError(t, d.Send(entry("a")))
	require.NoError(t, d.Send(entry("b")))

	ack := nextAck(t, d)
	assert.Equal(t, AckProcessed, ack.Kind)
	assert.Equal(t, 2, ack.Count)

	// One chunk, entries in arrival order
	assert.Equal(t, []string{"a\nb\n"}, cs.all())
}

func TestTimeTrigger(t *testing.T) {
	cs := &captureSink{}
	d := startDispatcher(t, cs, 100, 30*time.Millisecond)

	require.NoError(t, d.Send(entry("slow")))

	ack := nextAck(t, d)
	assert.Equal(t, AckProcessed, ack.Kind)
	assert.Equal(t, 1, ack.Count)
	assert.Equal(t, []string{"slow\n"}, cs.all())
}

func TestFlushToken(t *testing.T) {
	cs := &captureSink{}
	d := startDispatcher(t, cs, 100, time.Hour)

	require.NoError(t, d.Send(entry("x")))
	require.NoError(t, d.Send(Flush(42)))

	ack := nextAck(t, d)
	require.Equal(t, AckProcessed, ack.Kind)
	assert.Equal(t, 1, ack.Count)

	ack = nextAck(t, d)
	require.Equal(t, AckFlushed, ack.Kind)
	assert.Equal(t, uint64(42), ack.Token)

	// The flush answered only after the chunk was written
	assert.Equal(t, []string{"x\n"}, cs.all())
}

func TestFlushEmptyBuffer(t *testing.T) {
	cs := &captureSink{}
	d := startDispatcher(t, cs, 100, time.Hour)

	require.NoError(t, d.Send(Flush(7)))

	ack := nextAck(t, d)
	assert.Equal(t, AckFlushed, ack.Kind)
	assert.Equal(t, uint64(7), ack.Token)
	assert.Empty(t, cs.all())
}

func TestDropFold(t *testing.T) {
	cs := &captureSink{}
	d := startDispatcher(t, cs, 100, time.Hour)

	require.NoError(t, d.Send(Dropped(3)))
	require.NoError(t, d.Send(entry("a")))
	require.NoError(t, d.Send(entry("b")))
	require.NoError(t, d.Send(Flush(1)))

	ack := nextAck(t, d)
	require.Equal(t, AckProcessed, ack.Kind)
	// The synthetic warning is never counted as processed
	assert.Equal(t, 2, ack.Count)

	ack = nextAck(t, d)
	require.Equal(t, AckFlushed, ack.Kind)

	chunks := cs.all()
	require.Len(t, chunks, 1)
	lines := strings.Split(strings.TrimSuffix(chunks[0], "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "3 log entries dropped due to backpressure", lines[0])
	assert.Equal(t, "a", lines[1])
	assert.Equal(t, "b", lines[2])
}

func TestDropFoldOnlyOnce(t *testing.T) {
	cs := &captureSink{}
	d := startDispatcher(t, cs, 100, time.Hour)

	require.NoError(t, d.Send(Dropped(5)))
	require.NoError(t, d.Send(entry("a")))
	require.NoError(t, d.Send(Flush(1)))
	nextAck(t, d) // processed
	nextAck(t, d) // flushed

	// A second flush must not repeat the warning
	require.NoError(t, d.Send(entry("b")))
	require.NoError(t, d.Send(Flush(2)))
	nextAck(t, d) // processed
	nextAck(t, d) // flushed

	chunks := cs.all()
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0], "5 log entries dropped")
	assert.NotContains(t, chunks[1], "dropped")
}

func TestWriteFailure(t *testing.T) {
	cs := &captureSink{fail: true}
	fallback := &captureSink{}
	d := New(128, newTestLogger())
	require.NoError(t, d.Send(Init(&Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
		Formatter:     rawFormatter(t),
		Sink:          cs,
		Fallback:      fallback,
	})))
	defer d.Send(Terminate())

	require.NoError(t, d.Send(entry("lost")))
	require.NoError(t, d.Send(Flush(9)))

	ack := nextAck(t, d)
	require.Equal(t, AckError, ack.Kind)
	assert.Error(t, ack.Err)

	// Entries still count as processed so the producer cannot deadlock
	ack = nextAck(t, d)
	require.Equal(t, AckProcessed, ack.Kind)
	assert.Equal(t, 1, ack.Count)

	// Flush resolves even though the write failed
	ack = nextAck(t, d)
	require.Equal(t, AckFlushed, ack.Kind)
	assert.Equal(t, uint64(9), ack.Token)

	// One best-effort fallback attempt
	assert.Equal(t, []string{"lost\n"}, fallback.all())
}

func TestEntryBeforeInit(t *testing.T) {
	d := New(128, newTestLogger())
	defer d.Send(Terminate())

	require.NoError(t, d.Send(entry("orphan")))

	ack := nextAck(t, d)
	assert.Equal(t, AckError, ack.Kind)
	assert.Error(t, ack.Err)
}

func TestTerminate(t *testing.T) {
	cs := &captureSink{}
	d := New(128, newTestLogger())
	require.NoError(t, d.Send(Init(&Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
		Formatter:     rawFormatter(t),
		Sink:          cs,
	})))

	require.NoError(t, d.Send(Terminate()))

	select {
	case <-d.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not terminate")
	}

	// Sends after termination are refused, not deadlocked
	assert.False(t, d.TrySend(entry("late")))
	assert.ErrorIs(t, d.Send(Flush(1)), ErrTerminated)
}

func TestMidDrainEntriesFormNextBatch(t *testing.T) {
	// A slow sink holds the drain open while more entries arrive; they
	// must land in the following batch, not the detached one.
	block := make(chan struct{})
	cs := &blockingSink{release: block, entered: make(chan struct{})}
	d := New(128, newTestLogger())
	require.NoError(t, d.Send(Init(&Config{
		BatchSize:     1,
		FlushInterval: time.Hour,
		Formatter:     rawFormatter(t),
		Sink:          cs,
	})))
	defer func() {
		d.Send(Terminate())
		<-d.Done()
	}()

	require.NoError(t, d.Send(entry("first")))

	// Wait for the drain to be inside the write
	select {
	case <-cs.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("write never started")
	}

	require.NoError(t, d.Send(entry("second")))
	close(block)

	nextAck(t, d) // processed first
	nextAck(t, d) // processed second

	assert.Equal(t, []string{"first\n", "second\n"}, cs.all())
}

// blockingSink parks the first write until released.
type blockingSink struct {
	mu      sync.Mutex
	chunks  []string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSink) Write(chunk []byte) error {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, string(chunk))
	return nil
}

func (b *blockingSink) Name() string      { return "blocking" }
func (b *blockingSink) Stats() sink.Stats { return sink.Stats{} }
func (b *blockingSink) Close() error      { return nil }

func (b *blockingSink) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.chunks...)
}
