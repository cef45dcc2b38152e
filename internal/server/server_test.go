package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/bday/internal/config"
)

// -----------------------------------------------------------------------------
// Unit Tests (White-Box Testing of Handler Logic)
// -----------------------------------------------------------------------------

// TestHandler_ServingContent verifies headers and body when a calendar is cached.
func TestHandler_ServingContent(t *testing.T) {
	srv := NewCalendarServer(0, nil) // Port irrelevant for handler test
	expectedICS := []byte(config.StubVCalendar)
	srv.Update(expectedICS)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.handleCalendarRequest(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))
	assert.NotEmpty(t, resp.Header.Get(config.HeaderLastModified))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, expectedICS, body)
}

// TestHandler_Head returns headers without a body.
func TestHandler_Head(t *testing.T) {
	srv := NewCalendarServer(0, nil)
	srv.Update([]byte(config.StubVCalendar))

	w := httptest.NewRecorder()
	srv.handleCalendarRequest(w, httptest.NewRequest(http.MethodHead, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(config.HeaderETag))
	assert.Zero(t, w.Body.Len())
}

// TestHandler_Caching verifies If-None-Match and If-Modified-Since handling.
func TestHandler_Caching(t *testing.T) {
	srv := NewCalendarServer(0, nil)
	srv.Update([]byte("DATA_VERSION_1"))

	w1 := httptest.NewRecorder()
	srv.handleCalendarRequest(w1, httptest.NewRequest(http.MethodGet, "/", nil))
	etag := w1.Result().Header.Get(config.HeaderETag)
	lastModified := w1.Result().Header.Get(config.HeaderLastModified)
	require.NotEmpty(t, etag, "Server must provide an ETag")

	t.Run("If-None-Match", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(config.HeaderIfNoneMatch, etag)
		w := httptest.NewRecorder()
		srv.handleCalendarRequest(w, req)

		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Zero(t, w.Body.Len(), "Body must be empty on 304 Not Modified")
	})

	t.Run("If-Modified-Since", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(config.HeaderIfModifiedSince, lastModified)
		w := httptest.NewRecorder()
		srv.handleCalendarRequest(w, req)

		assert.Equal(t, http.StatusNotModified, w.Code)
	})

	t.Run("Stale ETag", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(config.HeaderIfNoneMatch, `"outdated"`)
		w := httptest.NewRecorder()
		srv.handleCalendarRequest(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

// TestHandler_MethodNotAllowed ensures strictly GET and HEAD are accepted.
func TestHandler_MethodNotAllowed(t *testing.T) {
	srv := NewCalendarServer(0, nil)

	w := httptest.NewRecorder()
	srv.handleCalendarRequest(w, httptest.NewRequest(http.MethodPost, "/", nil))

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, config.AllowedMethods, resp.Header.Get(config.HeaderAllow))
}

// TestHandler_Initializing verifies the 503 behavior when no calendar was rendered yet.
func TestHandler_Initializing(t *testing.T) {
	srv := NewCalendarServer(0, nil)

	w := httptest.NewRecorder()
	srv.handleCalendarRequest(w, httptest.NewRequest(http.MethodGet, "/", nil))

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, config.RetryAfterSeconds, resp.Header.Get(config.HeaderRetryAfter))
}

// -----------------------------------------------------------------------------
// Cache & Refresh
// -----------------------------------------------------------------------------

func TestUpdate_SameContentKeepsItem(t *testing.T) {
	srv := NewCalendarServer(0, nil)
	srv.Update([]byte("A"))
	first := srv.cache.Load()

	srv.Update([]byte("A"))
	assert.Same(t, first, srv.cache.Load())

	srv.Update([]byte("B"))
	assert.NotEqual(t, first.etag, srv.cache.Load().etag)
}

func TestRefresh(t *testing.T) {
	fail := errors.New("store unreadable")
	var broken atomic.Bool

	srv := NewCalendarServer(0, func(context.Context) ([]byte, error) {
		if broken.Load() {
			return nil, fail
		}
		return []byte("CAL"), nil
	})

	require.NoError(t, srv.Refresh(context.Background()))
	assert.Equal(t, []byte("CAL"), srv.cache.Load().data)

	broken.Store(true)
	assert.ErrorIs(t, srv.Refresh(context.Background()), fail)
	assert.Equal(t, []byte("CAL"), srv.cache.Load().data, "previous calendar is kept")
}

func TestRefresh_NoGenerator(t *testing.T) {
	srv := NewCalendarServer(0, nil)
	assert.NoError(t, srv.Refresh(context.Background()))
	assert.Nil(t, srv.cache.Load())
}

func TestRefreshLoop(t *testing.T) {
	var calls atomic.Int32
	srv := NewCalendarServer(0, func(context.Context) ([]byte, error) {
		n := calls.Add(1)
		return []byte(fmt.Sprintf("CAL-%d", n)), nil
	})
	srv.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.refreshLoop(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not stop")
	}
}

func TestStart_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		err := NewCalendarServer(port, nil).Start(context.Background())
		assert.EqualError(t, err, config.ErrPortRange)
	}
}

// -----------------------------------------------------------------------------
// Concurrency Tests (Race Detection)
// -----------------------------------------------------------------------------

// TestServer_RaceCondition runs writers and readers concurrently.
// Run this with `go test -race`.
func TestServer_RaceCondition(t *testing.T) {
	srv := NewCalendarServer(0, nil)
	var wg sync.WaitGroup

	end := time.Now().Add(500 * time.Millisecond)

	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			i := 0
			for time.Now().Before(end) {
				srv.Update([]byte(fmt.Sprintf("VERSION:%d-%d", id, i)))
				i++
				time.Sleep(1 * time.Microsecond)
			}
		}(w)
	}

	for r := 0; r < 20; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				w := httptest.NewRecorder()
				srv.handleCalendarRequest(w, httptest.NewRequest(http.MethodGet, "/", nil))

				code := w.Code
				if code != http.StatusOK && code != http.StatusServiceUnavailable {
					t.Errorf("Unexpected status code during race test: %d", code)
				}
			}
		}()
	}

	wg.Wait()
}

// -----------------------------------------------------------------------------
// Integration Tests (Real TCP Lifecycle)
// -----------------------------------------------------------------------------

// TestServer_Lifecycle spins up the TCP listener to verify binding, the initial
// render and graceful shutdown.
func TestServer_Lifecycle(t *testing.T) {
	const port = 18099

	srv := NewCalendarServer(port, func(context.Context) ([]byte, error) {
		return []byte(config.StubVCalendar), nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start(ctx)
	}()

	url := fmt.Sprintf("http://%s:%d/", config.LocalhostBindAddr, port)

	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "calendar is rendered before listening")
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}
