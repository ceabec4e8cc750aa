// Package loader reads book files: JSON documents holding inventory reports,
// issued reports and stock cards. A book may include other books; included
// paths are resolved from the directory of the including file and every file
// is loaded at most once.
//
// The loader supports two modes of operation:
//   - Simple mode: reads a single book, include paths are kept as written
//   - Follow mode: recursively loads all included books and merges them
//
// Example usage:
//
//	ldr := loader.New(loader.WithFollowIncludes())
//	result, err := ldr.Load(ctx, "main.json")
//	engine := stockcard.NewEngine(result)
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robinvdvleuten/stockcard/stockcard"
	"github.com/robinvdvleuten/stockcard/telemetry"
)

// Book is the on-disk document format.
type Book struct {
	Include          []string                    `json:"include,omitempty"`
	InventoryReports []stockcard.InventoryReport `json:"inventoryReports,omitempty"`
	IssuedReports    []stockcard.IssuedReport    `json:"issuedReports,omitempty"`
	StockCards       []stockcard.StockCard       `json:"stockCards,omitempty"`
}

// Loader handles loading of book files with optional include resolution.
//
// Configure the loader using functional options passed to New:
//
//	loader := New(WithFollowIncludes())
type Loader struct {
	// FollowIncludes determines whether to recursively load included books.
	FollowIncludes bool
}

// Option configures how files are loaded.
type Option func(*Loader)

// WithFollowIncludes configures the loader to recursively load and merge all
// included books.
func WithFollowIncludes() Option {
	return func(l *Loader) {
		l.FollowIncludes = true
	}
}

// New creates a new Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads filename and, in follow mode, every book it includes.
func (l *Loader) Load(ctx context.Context, filename string) (*Result, error) {
	timer := telemetry.StartTimer(ctx, "loader.load "+filepath.Base(filename))
	defer timer.End()

	root, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
	}

	result := newResult(root)

	if !l.FollowIncludes {
		book, err := ReadBook(root)
		if err != nil {
			return nil, err
		}
		if err := result.merge(root, book); err != nil {
			return nil, err
		}
		result.Book.Include = book.Include
		return result, nil
	}

	state := &loaderState{
		visited: make(map[string]bool),
		result:  result,
	}
	if err := state.loadRecursive(ctx, root); err != nil {
		return nil, err
	}
	return result, nil
}

// loaderState tracks state during recursive loading.
type loaderState struct {
	visited map[string]bool // Absolute paths of files already loaded
	result  *Result
}

func (l *loaderState) loadRecursive(ctx context.Context, absPath string) error {
	if l.visited[absPath] {
		return nil
	}
	l.visited[absPath] = true

	book, err := ReadBook(absPath)
	if err != nil {
		return err
	}
	if absPath != l.result.Root {
		l.result.Includes = append(l.result.Includes, absPath)
	}
	if err := l.result.merge(absPath, book); err != nil {
		return err
	}

	baseDir := filepath.Dir(absPath)
	for _, inc := range book.Include {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		includePath := inc
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, includePath)
		}
		includePath = filepath.Clean(includePath)

		if err := l.loadRecursive(ctx, includePath); err != nil {
			return fmt.Errorf("in file %s: %w", absPath, err)
		}
	}
	return nil
}

// ReadBook reads and decodes a single book file. Includes are not followed.
func ReadBook(filename string) (*Book, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return ParseBook(filename, data)
}

// ParseBook decodes book data. Unknown fields are rejected.
func ParseBook(filename string, data []byte) (*Book, error) {
	var book Book
	if len(bytes.TrimSpace(data)) == 0 {
		return &book, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&book); err != nil {
		return nil, newParseError(filename, data, err)
	}
	return &book, nil
}

// MarshalBook encodes a book the way it is written to disk.
func MarshalBook(book *Book) ([]byte, error) {
	data, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
