// Package web provides an HTTP API for editing stock cards.
//
// The server exposes stock cards, their entries and balances as JSON, applies
// allocations and entry edits through editor sessions, and exports cards as
// XLSX or PDF. When the backend is a book on disk, the server watches the
// book files and pushes a "reload" event to connected clients when they
// change.
//
// SECURITY WARNING: This server has no authentication and should only be
// bound to localhost (127.0.0.1). Do not expose it to untrusted networks.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/robinvdvleuten/stockcard/editor"
	"github.com/robinvdvleuten/stockcard/export"
	"github.com/robinvdvleuten/stockcard/stockcard"
	"github.com/robinvdvleuten/stockcard/store"
	"github.com/robinvdvleuten/stockcard/telemetry"
)

type Server struct {
	Addr         string
	Version      string
	ReadOnly     bool
	WatchEnabled bool
	Metrics      bool // Expose /metrics

	backend  store.Backend
	engine   *stockcard.Engine
	registry *editor.Registry
	uploader *export.Uploader
	logger   *slog.Logger
	metrics  *metrics

	// SSE clients for broadcasting reload events
	sseClients map[chan string]struct{}
	sseMu      sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and watcher messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithUploader enables uploading exports to object storage.
func WithUploader(u *export.Uploader) Option {
	return func(s *Server) {
		s.uploader = u
	}
}

// New creates a server for the cards in backend. Allocations are checked by
// engine.
func New(backend store.Backend, engine *stockcard.Engine, opts ...Option) *Server {
	s := &Server{
		Addr:       "127.0.0.1:8080",
		Metrics:    true,
		backend:    backend,
		engine:     engine,
		logger:     slog.New(slog.DiscardHandler),
		metrics:    newMetrics(),
		sseClients: make(map[chan string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = editor.NewRegistry(engine, backend, s.logger)
	return s
}

// Start serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	timer := telemetry.StartTimer(ctx, fmt.Sprintf("web.start %s", s.Addr))

	if s.WatchEnabled {
		if err := s.startWatcher(ctx); err != nil {
			timer.End()
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
	}

	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end with the server context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	timer.End()

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server started", "addr", s.Addr, "version", s.Version, "read_only", s.ReadOnly)

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Handler returns the instrumented API handler.
func (s *Server) Handler() http.Handler {
	return s.metrics.instrument(s.setupRouter())
}

func (s *Server) setupRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/stockcards", s.handleListCards)
	mux.HandleFunc("GET /api/stockcards/{id}", s.handleGetCard)
	mux.HandleFunc("PUT /api/stockcards/{id}", s.requireWritable(s.handleSaveCard))
	mux.HandleFunc("GET /api/stockcards/{id}/verify", s.handleVerifyCard)
	mux.HandleFunc("DELETE /api/stockcards/{id}/session", s.handleDiscardSession)
	mux.HandleFunc("POST /api/stockcards/{id}/entries", s.requireWritable(s.handleAddEntry))
	mux.HandleFunc("DELETE /api/stockcards/{id}/entries", s.requireWritable(s.handleRemoveEntries))
	mux.HandleFunc("PATCH /api/stockcards/{id}/entries/{entryID}", s.requireWritable(s.handleUpdateEntry))
	mux.HandleFunc("POST /api/stockcards/{id}/entries/{entryID}/source", s.requireWritable(s.handleAllocate))
	mux.HandleFunc("GET /api/stockcards/{id}/export.xlsx", s.handleExport(export.XLSX))
	mux.HandleFunc("GET /api/stockcards/{id}/export.pdf", s.handleExport(export.PDF))
	mux.HandleFunc("POST /api/stockcards/{id}/uploads/{format}", s.requireWritable(s.handleUpload))
	mux.HandleFunc("GET /api/inventory-reports", s.handleInventoryReports)
	mux.HandleFunc("GET /api/events", s.handleSSE)

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.Metrics {
		mux.Handle("GET /metrics", s.metrics.handler())
	}

	return mux
}

// requireWritable is middleware that rejects write requests in read-only mode.
func (s *Server) requireWritable(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.ReadOnly {
			http.Error(w, "Server is in read-only mode", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// watchable is implemented by backends stored in files on disk.
type watchable interface {
	Files(ctx context.Context) ([]string, error)
	Reload()
}

// startWatcher starts a file watcher for the book files behind the backend.
// It reloads the book and broadcasts SSE events when files change.
func (s *Server) startWatcher(ctx context.Context) error {
	book, ok := s.backend.(watchable)
	if !ok {
		s.logger.Warn("backend does not support watching, file watcher disabled")
		return nil
	}

	files, err := book.Files(ctx)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	for _, file := range files {
		if err := watcher.Add(file); err != nil {
			s.logger.Warn("failed to watch file", "file", file, "err", err)
		}
	}

	go s.runWatcher(ctx, watcher, book, files)

	return nil
}

// runWatcher processes file system events with debouncing.
func (s *Server) runWatcher(ctx context.Context, watcher *fsnotify.Watcher, book watchable, files []string) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	// Editors and atomic saves write files in multiple steps
	const debounceDelay = 100 * time.Millisecond

	changed := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})

		case <-changed:
			files = s.handleFileChange(ctx, watcher, book, files)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("file watcher error", "err", err)
		}
	}
}

// handleFileChange reloads the book, updates the watch list and tells clients
// to refresh. Sessions with unsaved changes survive the reload. It returns
// the files now being watched.
func (s *Server) handleFileChange(ctx context.Context, watcher *fsnotify.Watcher, book watchable, previous []string) []string {
	book.Reload()

	files, err := book.Files(ctx)
	if err != nil {
		s.logger.Error("failed to reload book", "err", err)
		return previous
	}

	current := make(map[string]bool, len(files))
	for _, f := range files {
		current[f] = true
	}
	for _, f := range previous {
		if !current[f] {
			_ = watcher.Remove(f)
		}
	}
	// Re-add everything to catch files re-created by atomic saves
	for _, f := range files {
		if err := watcher.Add(f); err != nil {
			s.logger.Warn("failed to watch file", "file", f, "err", err)
		}
	}

	if dirty := s.registry.DiscardClean(); len(dirty) > 0 {
		s.logger.Warn("book changed on disk, keeping sessions with unsaved changes", "cards", dirty)
	}

	s.broadcast("reload")
	return files
}

// handleSSE handles Server-Sent Events connections for real-time updates.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := make(chan string, 10)

	s.sseMu.Lock()
	s.sseClients[clientChan] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseClients, clientChan)
		s.sseMu.Unlock()
	}()

	_, _ = fmt.Fprintf(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-clientChan:
			_, _ = fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

// broadcast sends an event to all connected SSE clients.
func (s *Server) broadcast(event string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()

	for clientChan := range s.sseClients {
		select {
		case clientChan <- event:
		default:
			// Client buffer full, skip
		}
	}
}
