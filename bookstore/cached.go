package bookstore

import (
	"context"

	cache "github.com/krisalay/keyed-cache"
	"github.com/krisalay/keyed-cache/types"
)

// CachedRepository decorates a Repository with a keyed cache.
type CachedRepository struct {
	repo   Repository
	books  *cache.KeyedCache[int64, *Book]
	loader types.Loader[int64, *Book]
}

// NewCachedRepository reads through c. A typical c comes from a
// cache.Manager under CacheName.
func NewCachedRepository(repo Repository, c *cache.KeyedCache[int64, *Book]) *CachedRepository {
	return &CachedRepository{
		repo:   repo,
		books:  c,
		loader: types.LoaderFunc[int64, *Book](repo.FindByID),
	}
}

// FindByIDWithCache returns the cached book for id, querying the repository
// only on a miss. Repeated calls return the same *Book.
func (r *CachedRepository) FindByIDWithCache(ctx context.Context, id int64) (*Book, error) {
	return r.books.GetOrLoad(ctx, id, r.loader)
}

// FindByIDWithoutCache always queries the repository.
func (r *CachedRepository) FindByIDWithoutCache(ctx context.Context, id int64) (*Book, error) {
	return r.repo.FindByID(ctx, id)
}

// Evict drops the cached book for id.
func (r *CachedRepository) Evict(id int64) {
	r.books.Invalidate(id)
}

// Reset drops every cached book.
func (r *CachedRepository) Reset() {
	r.books.Clear()
}
