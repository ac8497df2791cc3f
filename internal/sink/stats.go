package sink

import (
	"sync/atomic"
	"time"
)

var timeZero = time.Time{}

func recordWrite(chunks, bytes *atomic.Uint64, last *atomic.Value, n int) {
	chunks.Add(1)
	bytes.Add(uint64(n))
	last.Store(time.Now())
}

func snapshot(dest string, chunks, bytes, failed *atomic.Uint64, last *atomic.Value) Stats {
	lastWrite, _ := last.Load().(time.Time)
	return Stats{
		Destination: dest,
		Chunks:      chunks.Load(),
		Bytes:       bytes.Load(),
		Failed:      failed.Load(),
		LastWrite:   lastWrite,
	}
}
