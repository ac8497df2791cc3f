package sink

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectorServer records every POST body it receives.
type collectorServer struct {
	mu     sync.Mutex
	bodies []string
	agents []string
	types  []string
	status int
}

func (c *collectorServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, string(data))
		c.agents = append(c.agents, r.Header.Get("User-Agent"))
		c.types = append(c.types, r.Header.Get("Content-Type"))
		c.mu.Unlock()
		w.WriteHeader(c.status)
	}
}

func TestHTTPSink_PostRoundTrip(t *testing.T) {
	collector := &collectorServer{status: http.StatusAccepted}
	srv := httptest.NewServer(collector.handler())
	defer srv.Close()

	s, err := Open(srv.URL, newTestLogger())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "http", s.Name())

	chunk := `{"msg":"one"}` + "\n" + `{"msg":"two"}` + "\n"
	require.NoError(t, s.Write([]byte(chunk)))

	collector.mu.Lock()
	defer collector.mu.Unlock()
	require.Len(t, collector.bodies, 1)
	assert.Equal(t, chunk, collector.bodies[0])
	assert.Equal(t, "application/x-ndjson", collector.types[0])
	assert.Contains(t, collector.agents[0], "bunlogs/")

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Chunks)
	assert.Equal(t, uint64(len(chunk)), stats.Bytes)
	assert.Equal(t, uint64(0), stats.Failed)
	assert.False(t, stats.LastWrite.IsZero())
}

func TestHTTPSink_RejectsNon2xxStatus(t *testing.T) {
	collector := &collectorServer{status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(collector.handler())
	defer srv.Close()

	s, err := Open(srv.URL, newTestLogger())
	require.NoError(t, err)
	defer s.Close()

	err = s.Write([]byte("x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(0), stats.Chunks)
}

func TestHTTPSink_UnreachableCollector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // the port is now dead

	s, err := Open(url, newTestLogger())
	require.NoError(t, err)
	defer s.Close()

	assert.Error(t, s.Write([]byte("x\n")))
	assert.Equal(t, uint64(1), s.Stats().Failed)
}
