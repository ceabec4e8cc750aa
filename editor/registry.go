package editor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robinvdvleuten/stockcard/stockcard"
)

// Registry keeps one open session per stock card id.
type Registry struct {
	engine *stockcard.Engine
	store  Store
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry that opens cards from store.
func NewRegistry(engine *stockcard.Engine, store Store, logger *slog.Logger) *Registry {
	return &Registry{
		engine:   engine,
		store:    store,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Open returns the session for the card, loading the card from the store if
// no session is open yet. The store is read without holding the registry
// lock; when two callers race to open the same card, the first session
// stored wins and both get it.
func (r *Registry) Open(ctx context.Context, id string) (*Session, error) {
	if s, ok := r.Lookup(id); ok {
		return s, nil
	}

	card, err := r.store.Card(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	s := NewSession(card, r.engine, r.store, r.logger)
	r.sessions[id] = s
	return s, nil
}

// Lookup returns the open session for id, if any.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Discard closes the session for id, dropping unsaved changes. It reports
// whether a session was open.
func (r *Registry) Discard(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	if s.Dirty() {
		r.logger.Info("discarding unsaved changes", "card", id)
	}
	delete(r.sessions, id)
	return true
}

// DiscardClean closes every session without unsaved changes, so the next
// Open reads the card from the store again. Dirty sessions are kept and
// returned.
func (r *Registry) DiscardClean() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dirty []string
	for id, s := range r.sessions {
		if s.Dirty() {
			dirty = append(dirty, id)
			continue
		}
		delete(r.sessions, id)
	}
	return dirty
}
