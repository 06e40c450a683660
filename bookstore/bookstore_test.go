package bookstore_test

import (
	"context"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	platformerrors "github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cache "github.com/krisalay/keyed-cache"
	"github.com/krisalay/keyed-cache/bookstore"
	"github.com/krisalay/keyed-cache/types"
)

type fixture struct {
	repo    *bookstore.MemoryRepository
	cached  *bookstore.CachedRepository
	manager *cache.Manager[int64, *bookstore.Book]
}

// newFixture builds a fresh repository and clears the book cache, so every
// test starts from an empty cache.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := &log.Logger{Handler: discard.New(), Level: log.InfoLevel}
	m := cache.NewManager[int64, *bookstore.Book](
		[]string{bookstore.CacheName},
		cache.WithLogger[int64](logger),
		cache.WithKeyValidator(bookstore.ValidateID),
	)
	books, err := m.Cache(bookstore.CacheName)
	require.NoError(t, err)
	books.Clear()

	repo := bookstore.NewMemoryRepository(
		bookstore.Book{ID: 1, Title: "Dune"},
		bookstore.Book{ID: 2, Title: "Hyperion"},
	)
	return &fixture{
		repo:    repo,
		cached:  bookstore.NewCachedRepository(repo, books),
		manager: m,
	}
}

func TestFindWithCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.cached.FindByIDWithCache(ctx, 1)
	require.NoError(t, err)
	second, err := f.cached.FindByIDWithCache(ctx, 1)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), f.repo.Calls())
}

func TestFindWithoutCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.cached.FindByIDWithoutCache(ctx, 1)
	require.NoError(t, err)
	second, err := f.cached.FindByIDWithoutCache(ctx, 1)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, int64(2), f.repo.Calls())
}

func TestFindWithCacheDistinctIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.cached.FindByIDWithCache(ctx, 1)
	require.NoError(t, err)
	second, err := f.cached.FindByIDWithCache(ctx, 2)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, "Dune", first.Title)
	assert.Equal(t, "Hyperion", second.Title)
	assert.Equal(t, int64(2), f.repo.Calls())
}

func TestEvictReloadsUpdatedBook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	before, err := f.cached.FindByIDWithCache(ctx, 1)
	require.NoError(t, err)

	f.repo.Save(bookstore.Book{ID: 1, Title: "Dune Messiah"})
	stale, err := f.cached.FindByIDWithCache(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, before, stale)
	assert.Equal(t, "Dune", stale.Title)

	f.cached.Evict(1)
	after, err := f.cached.FindByIDWithCache(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", after.Title)
	assert.Equal(t, int64(2), f.repo.Calls())
}

func TestResetThroughManager(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.cached.FindByIDWithCache(ctx, 1)
	require.NoError(t, err)
	f.manager.ClearAll()
	_, err = f.cached.FindByIDWithCache(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.repo.Calls())

	f.cached.Reset()
	_, err = f.cached.FindByIDWithCache(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.repo.Calls())
}

func TestNotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.cached.FindByIDWithCache(ctx, 3)
	require.Error(t, err)
	assert.True(t, cache.IsLoaderFailure(err))

	f.repo.Save(bookstore.Book{ID: 3, Title: "Foundation"})
	b, err := f.cached.FindByIDWithCache(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Foundation", b.Title)
	assert.Equal(t, int64(2), f.repo.Calls())
}

func TestInvalidIDNeverReachesRepository(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.cached.FindByIDWithCache(ctx, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidKey)
	assert.Equal(t, int64(0), f.repo.Calls())
}

func TestMemoryRepository(t *testing.T) {
	repo := bookstore.NewMemoryRepository(bookstore.Book{ID: 9, Title: "Ubik"})

	b, err := repo.FindByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, &bookstore.Book{ID: 9, Title: "Ubik"}, b)

	_, err = repo.FindByID(context.Background(), 10)
	assert.Equal(t, platformerrors.CodeNotFound, platformerrors.GetCode(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.FindByID(ctx, 9)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(3), repo.Calls())
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id      int64
		wantErr bool
	}{
		{1, false},
		{0, true},
		{-5, true},
	}
	for _, tt := range tests {
		err := bookstore.ValidateID(tt.id)
		if tt.wantErr {
			assert.Error(t, err, "id %d", tt.id)
		} else {
			assert.NoError(t, err, "id %d", tt.id)
		}
	}
}
