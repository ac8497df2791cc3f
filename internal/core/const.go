package core

import "time"

// Pipeline defaults. Resolved once at construction; never mutated after
// initialization completes.
const (
	DefaultBatchSize     = 64
	DefaultFlushInterval = 200 * time.Millisecond
	DefaultMaxQueueSize  = 2048

	// DropNotifyInterval controls the rate-limited drop callback: the
	// callback fires on the first drop of an overflow window and on
	// every DropNotifyInterval-th drop thereafter.
	DropNotifyInterval = 100
)
