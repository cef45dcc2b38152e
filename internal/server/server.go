// Package server publishes the birthday calendar as an iCalendar feed on localhost.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tartampluch/bday/internal/config"
)

// Generator renders the current calendar. It is called once at startup and then on
// every refresh tick.
type Generator func(ctx context.Context) ([]byte, error)

// cacheItem stores the rendered calendar and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// CalendarServer serves the generated ICS file via HTTP.
type CalendarServer struct {
	// cache is read by every request and replaced on refresh, hence the atomic pointer.
	cache atomic.Pointer[cacheItem]

	Port     int
	Generate Generator
	// Interval between two regenerations; config.FeedRefreshInterval when zero.
	Interval time.Duration
}

// NewCalendarServer creates a server for port that refreshes itself with gen.
func NewCalendarServer(port int, gen Generator) *CalendarServer {
	return &CalendarServer{
		Port:     port,
		Generate: gen,
		Interval: config.FeedRefreshInterval,
	}
}

// Start renders the calendar, starts the HTTP server and the refresh loop, and blocks
// until the context is cancelled.
func (s *CalendarServer) Start(ctx context.Context) error {
	if s.Port < config.MinPort || s.Port > config.MaxPort {
		return errors.New(config.ErrPortRange)
	}

	// A failed first render leaves the cache empty; clients get 503 until a refresh works.
	_ = s.Refresh(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, s.handleCalendarRequest)

	port := strconv.Itoa(s.Port)
	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + port,
		Handler:      mux,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	go s.refreshLoop(loopCtx)

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

func (s *CalendarServer) refreshLoop(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = config.FeedRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}

// Refresh regenerates the calendar and swaps it in. On failure the previous
// calendar keeps being served.
func (s *CalendarServer) Refresh(ctx context.Context) error {
	if s.Generate == nil {
		return nil
	}
	slog.Debug(config.MsgFeedRefresh, config.LogKeyComponent, config.CompServer)

	data, err := s.Generate(ctx)
	if err != nil {
		slog.Warn(config.MsgFeedFailed,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err)
		return err
	}
	s.Update(data)
	return nil
}

// Update atomically replaces the served content. Identical content keeps its
// Last-Modified date so that conditional requests keep matching.
func (s *CalendarServer) Update(data []byte) {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	if current := s.cache.Load(); current != nil && current.etag == etag {
		return
	}

	item := &cacheItem{
		data:         data,
		etag:         etag,
		lastModified: time.Now().UTC().Format(http.TimeFormat),
	}
	s.cache.Store(item)

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
}

// handleCalendarRequest serves the ICS content with HTTP caching support.
func (s *CalendarServer) handleCalendarRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	item := s.cache.Load()
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set(config.HeaderContentType, config.MimeTextCalendar)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}
