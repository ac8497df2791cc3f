package sink

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/agusgarcia3007/bun-logs/internal/version"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

const httpTimeout = 10 * time.Second

// HTTPSink forwards rendered chunks to a remote collector endpoint.
// Each chunk is one POST; delivery is best-effort, failures surface to
// the dispatcher's error path like any other write failure.
type HTTPSink struct {
	url    string
	client *fasthttp.Client
	logger *log.Logger

	// Statistics
	totalChunks atomic.Uint64
	totalBytes  atomic.Uint64
	totalFailed atomic.Uint64
	lastWrite   atomic.Value // time.Time
}

func newHTTPSink(url string, logger *log.Logger) (*HTTPSink, error) {
	s := &HTTPSink{
		url:    url,
		logger: logger,
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			MaxIdleConnDuration: 10 * time.Second,
			ReadTimeout:         httpTimeout,
			WriteTimeout:        httpTimeout,
		},
	}
	s.lastWrite.Store(timeZero)

	logger.Debug("msg", "HTTP sink created",
		"component", "http_sink",
		"url", url)

	return s, nil
}

func (s *HTTPSink) Write(chunk []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-ndjson")
	req.Header.Set("User-Agent", fmt.Sprintf("bunlogs/%s", version.Short()))
	req.SetBody(chunk)

	err := s.client.DoTimeout(req, resp, httpTimeout)
	statusCode := resp.StatusCode()

	// Release immediately, not deferred
	fasthttp.ReleaseRequest(req)
	fasthttp.ReleaseResponse(resp)

	if err != nil {
		s.totalFailed.Add(1)
		return fmt.Errorf("post to %s failed: %w", s.url, err)
	}
	if statusCode < 200 || statusCode >= 300 {
		s.totalFailed.Add(1)
		return fmt.Errorf("post to %s failed: status %d", s.url, statusCode)
	}

	recordWrite(&s.totalChunks, &s.totalBytes, &s.lastWrite, len(chunk))
	return nil
}

func (s *HTTPSink) Name() string {
	return "http"
}

func (s *HTTPSink) Stats() Stats {
	return snapshot(s.url, &s.totalChunks, &s.totalBytes, &s.totalFailed, &s.lastWrite)
}

func (s *HTTPSink) Close() error {
	s.client.CloseIdleConnections()
	forget(s.url)
	return nil
}
