package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/stockcard/loader"
	"github.com/robinvdvleuten/stockcard/stockcard"
	"github.com/robinvdvleuten/stockcard/telemetry"
)

// FileStore keeps stock cards in book files. A saved card is written back to
// the book it was loaded from; new cards go to the root book.
type FileStore struct {
	root   string
	loader *loader.Loader

	mu     sync.Mutex
	result *loader.Result
}

// NewFileStore creates a store for the book at root. Nothing is read until the
// first query.
func NewFileStore(root string) *FileStore {
	return &FileStore{
		root:   root,
		loader: loader.New(loader.WithFollowIncludes()),
	}
}

// Reload drops the cached book so the next query reads it from disk again.
func (s *FileStore) Reload() {
	s.mu.Lock()
	s.result = nil
	s.mu.Unlock()
}

// Result returns the loaded book, reading it when necessary.
func (s *FileStore) Result(ctx context.Context) (*loader.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *FileStore) load(ctx context.Context) (*loader.Result, error) {
	if s.result != nil {
		return s.result, nil
	}
	result, err := s.loader.Load(ctx, s.root)
	if err != nil {
		return nil, err
	}
	s.result = result
	return result, nil
}

// Files returns the book files backing the store.
func (s *FileStore) Files(ctx context.Context) ([]string, error) {
	result, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}
	return result.Files(), nil
}

func (s *FileStore) Items(ctx context.Context, reportID, stockNumber string) ([]stockcard.InventoryReportItem, error) {
	result, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}
	return result.Items(ctx, reportID, stockNumber)
}

func (s *FileStore) Card(ctx context.Context, id string) (stockcard.StockCard, error) {
	result, err := s.Result(ctx)
	if err != nil {
		return stockcard.StockCard{}, err
	}
	card, ok := result.Card(id)
	if !ok {
		return stockcard.StockCard{}, &CardNotFoundError{ID: id}
	}
	return card, nil
}

func (s *FileStore) Cards(ctx context.Context) ([]stockcard.StockCard, error) {
	result, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}
	return result.Cards(), nil
}

func (s *FileStore) InventoryReports(ctx context.Context, stockNumber string) ([]stockcard.InventoryReport, error) {
	result, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}
	return result.ReportsFor(stockNumber), nil
}

func (s *FileStore) IssuedReports(ctx context.Context) ([]stockcard.IssuedReport, error) {
	result, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}
	return result.Book.IssuedReports, nil
}

// Save writes card into its book file. The file is replaced atomically, so a
// failed save leaves the previous contents in place.
func (s *FileStore) Save(ctx context.Context, card stockcard.StockCard) error {
	timer := telemetry.StartTimer(ctx, "store.save "+card.ID)
	defer timer.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.load(ctx)
	if err != nil {
		return persistenceError(card.ID, err)
	}

	target, ok := result.Source(card.ID)
	if !ok {
		target = result.Root
	}

	book, err := loader.ReadBook(target)
	if err != nil {
		return persistenceError(card.ID, err)
	}

	i := slices.IndexFunc(book.StockCards, func(c stockcard.StockCard) bool { return c.ID == card.ID })
	if i < 0 {
		book.StockCards = append(book.StockCards, card)
	} else {
		book.StockCards[i] = card
	}

	data, err := loader.MarshalBook(book)
	if err != nil {
		return persistenceError(card.ID, err)
	}
	if err := writeFileAtomic(target, data); err != nil {
		return persistenceError(card.ID, err)
	}

	s.result = nil
	return nil
}

func writeFileAtomic(filename string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(filename); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}
