package sink

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/log"
)

// FileSink appends chunks to a named file. The file is opened exactly
// once and the handle is cached for the sink's lifetime; reopening per
// write would break append ordering under concurrent writers outside
// this process.
type FileSink struct {
	dest      string
	file      *os.File
	closeOnce sync.Once
	logger    *log.Logger

	// Statistics
	totalChunks atomic.Uint64
	totalBytes  atomic.Uint64
	totalFailed atomic.Uint64
	lastWrite   atomic.Value // time.Time
}

func newFileSink(path string, logger *log.Logger) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	s := &FileSink{
		dest:   path,
		file:   f,
		logger: logger,
	}
	s.lastWrite.Store(timeZero)

	logger.Debug("msg", "File sink opened",
		"component", "file_sink",
		"path", path)

	return s, nil
}

func (s *FileSink) Write(chunk []byte) error {
	n, err := s.file.Write(chunk)
	if err != nil {
		s.totalFailed.Add(1)
		return fmt.Errorf("write to %s failed: %w", s.dest, err)
	}
	recordWrite(&s.totalChunks, &s.totalBytes, &s.lastWrite, n)
	return nil
}

func (s *FileSink) Name() string {
	return "file"
}

func (s *FileSink) Stats() Stats {
	return snapshot(s.dest, &s.totalChunks, &s.totalBytes, &s.totalFailed, &s.lastWrite)
}

// Close syncs and closes the handle, and evicts it from the open cache
// so a later Open re-establishes it.
func (s *FileSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.file.Sync()
		err = s.file.Close()
		forget(s.dest)
	})
	return err
}

// DescriptorSink writes chunks to an inherited raw file descriptor.
type DescriptorSink struct {
	dest      string
	file      *os.File
	closeOnce sync.Once
	logger    *log.Logger

	// Statistics
	totalChunks atomic.Uint64
	totalBytes  atomic.Uint64
	totalFailed atomic.Uint64
	lastWrite   atomic.Value // time.Time
}

func newDescriptorSink(dest string, fd int, logger *log.Logger) (*DescriptorSink, error) {
	f := os.NewFile(uintptr(fd), dest)
	if f == nil {
		return nil, fmt.Errorf("invalid file descriptor: %d", fd)
	}

	s := &DescriptorSink{
		dest:   dest,
		file:   f,
		logger: logger,
	}
	s.lastWrite.Store(timeZero)

	return s, nil
}

func (s *DescriptorSink) Write(chunk []byte) error {
	n, err := s.file.Write(chunk)
	if err != nil {
		s.totalFailed.Add(1)
		return fmt.Errorf("write to %s failed: %w", s.dest, err)
	}
	recordWrite(&s.totalChunks, &s.totalBytes, &s.lastWrite, n)
	return nil
}

func (s *DescriptorSink) Name() string {
	return "fd"
}

func (s *DescriptorSink) Stats() Stats {
	return snapshot(s.dest, &s.totalChunks, &s.totalBytes, &s.totalFailed, &s.lastWrite)
}

func (s *DescriptorSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.file.Close()
		forget(s.dest)
	})
	return err
}
