// Package editor holds the in-memory editing state of stock cards. A Session
// applies allocation and entry edits to one card and saves it through a
// Store; a Registry hands out one session per card to concurrent callers.
package editor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robinvdvleuten/stockcard/stockcard"
)

// Store loads and saves stock cards.
type Store interface {
	Card(ctx context.Context, id string) (stockcard.StockCard, error)
	Save(ctx context.Context, card stockcard.StockCard) error
}

// Session edits one stock card. All methods are safe for concurrent use;
// operations on the same session are serialized.
type Session struct {
	engine *stockcard.Engine
	store  Store
	logger *slog.Logger

	mu    sync.Mutex
	card  stockcard.StockCard
	dirty bool
}

// NewSession starts editing card.
func NewSession(card stockcard.StockCard, engine *stockcard.Engine, store Store, logger *slog.Logger) *Session {
	return &Session{
		engine: engine,
		store:  store,
		logger: logger.With("card", card.ID),
		card:   card.Clone(),
	}
}

// Snapshot returns a copy of the current state of the card.
func (s *Session) Snapshot() stockcard.StockCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card.Clone()
}

// Dirty reports whether the card has changes that were not saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Allocate sources the entry from reportID. On a rejected allocation the
// card is left unchanged and the error is returned.
func (s *Session) Allocate(ctx context.Context, entryID, reportID string) (*stockcard.AllocationDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := stockcard.FindEntry(s.card.Entries, entryID)
	if !ok {
		return nil, &stockcard.EntryNotFoundError{EntryID: entryID}
	}

	alloc, err := s.engine.Allocate(ctx, s.card.StockNumber, entry, reportID, s.card.Balances, s.card.Entries)
	if err != nil {
		if stockcard.IsRejection(err) {
			s.logger.Info("allocation rejected", "entry", entryID, "report", reportID, "reason", err.Error())
		}
		return nil, err
	}

	s.card.Entries, s.card.Balances = alloc.Entries, alloc.Balances
	s.dirty = true
	s.logger.Debug("allocated", "delta", alloc.Delta.String())
	return alloc.Delta, nil
}

// AddEntry appends an entry and returns it with its id filled in.
func (s *Session) AddEntry(entry stockcard.Entry) (stockcard.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, added, err := stockcard.AddEntry(s.card.Entries, entry)
	if err != nil {
		return stockcard.Entry{}, err
	}
	s.card.Entries = entries
	s.dirty = true
	return added, nil
}

// UpdateEntry applies patch to the entry with the given id.
func (s *Session) UpdateEntry(entryID string, patch stockcard.EntryPatch) (stockcard.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, updated, err := stockcard.UpdateEntry(s.card.Entries, entryID, patch)
	if err != nil {
		return stockcard.Entry{}, err
	}
	s.card.Entries = entries
	s.dirty = true
	return updated, nil
}

// RemoveEntries drops the entries with the given ids and returns how many
// were removed. Balances keep their attributions to removed entries.
func (s *Session) RemoveEntries(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := stockcard.RemoveEntries(s.card.Entries, ids)
	removed := len(s.card.Entries) - len(kept)
	if removed > 0 {
		s.card.Entries = kept
		s.dirty = true
	}
	return removed
}

// ReplaceEntries sets the entry list, keeping balances as they are.
func (s *Session) ReplaceEntries(entries []stockcard.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]stockcard.Entry, len(entries))
	copy(next, entries)
	s.card.Entries = next
	s.dirty = true
}

// Save persists the card. On failure the in-memory state and dirty flag are
// kept so the save can be retried.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, s.card.Clone()); err != nil {
		s.logger.Error("save failed", "err", err)
		return err
	}
	s.dirty = false
	s.logger.Info("saved", "entries", len(s.card.Entries), "sources", len(s.card.Balances))
	return nil
}

// Verify checks the card's balances against its source reports.
func (s *Session) Verify(ctx context.Context) error {
	return s.engine.Verify(ctx, s.Snapshot())
}
