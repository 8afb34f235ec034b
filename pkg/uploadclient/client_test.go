package uploadclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourname/chunk_upload/pkg/uploadproto"
)

func testConfig() Config {
	return Config{
		RetryMax:     3,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	}
}

// ============================================================================
// PlanChunks
// ============================================================================

func TestPlanChunks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		size, chunk int64
		total       int
		lastLen     int64
	}{
		{size: 0, chunk: 10, total: 1, lastLen: 0},
		{size: 1, chunk: 10, total: 1, lastLen: 1},
		{size: 10, chunk: 10, total: 1, lastLen: 10},
		{size: 11, chunk: 10, total: 2, lastLen: 1},
		{size: 100, chunk: 7, total: 15, lastLen: 2},
	}
	for _, tc := range cases {
		plan, err := PlanChunks(tc.size, tc.chunk)
		require.NoError(t, err)
		assert.Equal(t, tc.total, plan.Total, "size %d", tc.size)
		assert.Equal(t, tc.lastLen, plan.ChunkLen(plan.Total-1, tc.size), "size %d", tc.size)
	}

	_, err := PlanChunks(10, 0)
	assert.Error(t, err)
	_, err = PlanChunks(-1, 10)
	assert.Error(t, err)
}

// ============================================================================
// PushChunk
// ============================================================================

func TestPushChunk_SendsHeadersAndBody(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		got  http.Header
		body []byte
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		got, body = r.Header.Clone(), b
		mu.Unlock()
		w.Header().Set(uploadproto.HeaderFinalized, "true")
		w.Header().Set(uploadproto.HeaderSize, "42")
		_, _ = io.WriteString(w, "f - chunk 1 uploaded; assembled 42 bytes")
	}))
	t.Cleanup(ts.Close)

	c := New(ts.URL+"/", testConfig())
	resp, err := c.PushChunk(context.Background(), ChunkRequest{
		Key: "f", Index: 1, Total: 2, FileSize: 42,
		Data: strings.NewReader("0123456789"), Offset: 3, Size: 4,
	})
	require.NoError(t, err)
	assert.True(t, resp.Finalized)
	assert.Equal(t, int64(42), resp.ArtifactSize)
	assert.Contains(t, resp.Message, "assembled 42 bytes")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "3456", string(body))
	assert.Equal(t, "f", got.Get(uploadproto.HeaderFileName))
	assert.Equal(t, "1", got.Get(uploadproto.HeaderChunkIndex))
	assert.Equal(t, "2", got.Get(uploadproto.HeaderTotalChunks))
	assert.Equal(t, "42", got.Get(uploadproto.HeaderFileSize))
}

func TestPushChunk_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var mu sync.Mutex
	var bodies []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if calls.Add(1) < 3 {
			http.Error(w, "storage error: disk busy", http.StatusInternalServerError)
			return
		}
		w.Header().Set(uploadproto.HeaderFinalized, "false")
	}))
	t.Cleanup(ts.Close)

	c := New(ts.URL, testConfig())
	_, err := c.PushChunk(context.Background(), ChunkRequest{
		Key: "f", Total: 2, FileSize: -1, Data: strings.NewReader("payload"), Size: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"payload", "payload", "payload"}, bodies, "body is replayed on every attempt")
}

func TestPushChunk_ClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request: file name is empty", http.StatusBadRequest)
	}))
	t.Cleanup(ts.Close)

	c := New(ts.URL, testConfig())
	_, err := c.PushChunk(context.Background(), ChunkRequest{
		Total: 1, FileSize: -1, Data: strings.NewReader("x"), Size: 1,
	})
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Contains(t, se.Body, "file name is empty")
	assert.Equal(t, int32(1), calls.Load())
}

// ============================================================================
// PushFile
// ============================================================================

type recordingServer struct {
	mu       sync.Mutex
	order    []int
	chunks   map[int][]byte
	finalize bool
}

func (s *recordingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	idx, _ := strconv.Atoi(r.Header.Get(uploadproto.HeaderChunkIndex))
	total, _ := strconv.Atoi(r.Header.Get(uploadproto.HeaderTotalChunks))
	b, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.order = append(s.order, idx)
	s.chunks[idx] = b
	var size int
	for _, c := range s.chunks {
		size += len(c)
	}
	s.mu.Unlock()

	last := idx == total-1
	w.Header().Set(uploadproto.HeaderFinalized, strconv.FormatBool(last && s.finalize))
	w.Header().Set(uploadproto.HeaderSize, strconv.Itoa(size))
}

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "source.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestPushFile_LastChunkGoesLast(t *testing.T) {
	t.Parallel()

	rec := &recordingServer{chunks: map[int][]byte{}, finalize: true}
	ts := httptest.NewServer(rec)
	t.Cleanup(ts.Close)

	data := bytes.Repeat([]byte("0123456789abcdef"), 64) // 1 KiB
	path := writeTempFile(t, data)

	var progress bytes.Buffer
	cfg := testConfig()
	cfg.Progress = &progress
	c := New(ts.URL, cfg)

	res, err := c.PushFile(context.Background(), path, PushOptions{ChunkSize: 100, Concurrency: 4})
	require.NoError(t, err)
	assert.Equal(t, PushResult{Key: "source.bin", Size: 1024, Chunks: 11, ArtifactSize: 1024}, res)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.order, 11)
	assert.Equal(t, 10, rec.order[len(rec.order)-1])

	var joined []byte
	for i := 0; i < 11; i++ {
		joined = append(joined, rec.chunks[i]...)
	}
	assert.Equal(t, data, joined)
	assert.Contains(t, progress.String(), "Uploading source.bin")
	assert.Contains(t, progress.String(), "✓")
}

func TestPushFile_EmptyFile(t *testing.T) {
	t.Parallel()

	rec := &recordingServer{chunks: map[int][]byte{}, finalize: true}
	ts := httptest.NewServer(rec)
	t.Cleanup(ts.Close)

	c := New(ts.URL, testConfig())
	res, err := c.PushFile(context.Background(), writeTempFile(t, nil), PushOptions{Name: "empty", ChunkSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, "empty", res.Key)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []int{0}, rec.order)
}

func TestPushFile_NotAssembled(t *testing.T) {
	t.Parallel()

	rec := &recordingServer{chunks: map[int][]byte{}}
	ts := httptest.NewServer(rec)
	t.Cleanup(ts.Close)

	c := New(ts.URL, testConfig())
	_, err := c.PushFile(context.Background(), writeTempFile(t, []byte("abc")), PushOptions{ChunkSize: 2})
	assert.ErrorContains(t, err, "did not assemble")
}

func TestPushFile_StopsOnChunkFailure(t *testing.T) {
	t.Parallel()

	var lastSeen atomic.Bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		switch r.Header.Get(uploadproto.HeaderChunkIndex) {
		case "1":
			http.Error(w, "bad request: broken", http.StatusBadRequest)
		case "4":
			lastSeen.Store(true)
		}
	}))
	t.Cleanup(ts.Close)

	c := New(ts.URL, testConfig())
	_, err := c.PushFile(context.Background(), writeTempFile(t, []byte("0123456789")), PushOptions{ChunkSize: 2, Concurrency: 2})
	require.Error(t, err)
	assert.False(t, lastSeen.Load(), "last chunk is not sent after a failure")
}

// ============================================================================
// Fetch
// ============================================================================

func TestFetch(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/my file.txt" {
			http.Error(w, "file not found", http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, "contents")
	}))
	t.Cleanup(ts.Close)

	c := New(ts.URL, testConfig())
	rc, err := c.Fetch(context.Background(), "my file.txt")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "contents", string(b))

	_, err = c.Fetch(context.Background(), "other")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}
