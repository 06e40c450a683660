// Package bookstore is a small data-access layer used to exercise the keyed
// cache: a Repository that looks books up by id, and a CachedRepository that
// offers both a cached and a bypassing lookup over it.
package bookstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jmgilman/go/errors"
)

// CacheName is the name of the cache CachedRepository reads through.
const CacheName = "book"

// Book is one catalog item.
type Book struct {
	ID    int64  `yaml:"id"`
	Title string `yaml:"title"`
}

// Repository looks books up by id.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Book, error)
}

// MemoryRepository serves books from an in-memory catalog. Every call
// returns a newly allocated *Book, like a query that materializes a row.
type MemoryRepository struct {
	mu      sync.RWMutex
	catalog map[int64]string
	calls   atomic.Int64
}

// NewMemoryRepository builds a repository holding books.
func NewMemoryRepository(books ...Book) *MemoryRepository {
	r := &MemoryRepository{catalog: make(map[int64]string, len(books))}
	for _, b := range books {
		r.catalog[b.ID] = b.Title
	}
	return r
}

// FindByID returns a fresh copy of the book with the given id.
func (r *MemoryRepository) FindByID(ctx context.Context, id int64) (*Book, error) {
	r.calls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeTimeout, "find book")
	}

	r.mu.RLock()
	title, ok := r.catalog[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.WithContext(errors.New(errors.CodeNotFound, "book not found"), "id", id)
	}
	return &Book{ID: id, Title: title}, nil
}

// Save adds or replaces a catalog entry. Cached copies are not touched.
func (r *MemoryRepository) Save(b Book) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog[b.ID] = b.Title
}

// Calls returns how many times FindByID ran.
func (r *MemoryRepository) Calls() int64 {
	return r.calls.Load()
}
