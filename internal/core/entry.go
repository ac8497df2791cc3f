package core

import "time"

// Entry represents a single log record flowing through the pipeline.
// It is immutable once constructed; the dispatcher owns it after it
// crosses the producer/consumer channel.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
	Fields  map[string]any
}
