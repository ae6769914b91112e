package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notedesk/internal/notes/adapters/cache"
	"notedesk/internal/notes/domain/entities"
)

var errDatabase = errors.New("database error")

func mockRedisServer(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		s.Close()
	})

	return s, client
}

type mockNoteStore struct {
	mock.Mock
}

func (m *mockNoteStore) List(ctx context.Context, ownerID string) ([]*entities.Note, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Note), args.Error(1)
}

func (m *mockNoteStore) Get(ctx context.Context, ownerID, noteID string) (*entities.Note, error) {
	args := m.Called(ctx, ownerID, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Note), args.Error(1)
}

func (m *mockNoteStore) Create(ctx context.Context, ownerID string, fields entities.NoteFields) (*entities.Note, error) {
	args := m.Called(ctx, ownerID, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Note), args.Error(1)
}

func (m *mockNoteStore) Update(ctx context.Context, ownerID, noteID string, update entities.NoteUpdate) (*entities.Note, error) {
	args := m.Called(ctx, ownerID, noteID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Note), args.Error(1)
}

func (m *mockNoteStore) Delete(ctx context.Context, ownerID, noteID string) error {
	return m.Called(ctx, ownerID, noteID).Error(0)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()

	t.Run("set get delete", func(t *testing.T) {
		s, client := mockRedisServer(t)
		c := cache.NewRedisCache(client, 10*time.Minute)

		_, found, err := c.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, c.Set(ctx, "k", "v", 0))
		value, found, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "v", value)

		ttl := s.TTL("k")
		assert.Greater(t, ttl.Seconds(), 0.0, "Key should have TTL set")
		assert.LessOrEqual(t, ttl, 10*time.Minute)

		require.NoError(t, c.Delete(ctx, "k", "other"))
		assert.False(t, s.Exists("k"))
		require.NoError(t, c.Delete(ctx))
	})

	t.Run("explicit ttl", func(t *testing.T) {
		s, client := mockRedisServer(t)
		c := cache.NewRedisCache(client, time.Hour)

		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
		assert.Equal(t, time.Minute, s.TTL("k"))

		s.FastForward(2 * time.Minute)
		_, found, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("server errors are returned", func(t *testing.T) {
		s, client := mockRedisServer(t)
		c := cache.NewRedisCache(client, time.Hour)
		s.SetError("LOADING")

		_, _, err := c.Get(ctx, "k")
		require.Error(t, err)
		assert.Contains(t, err.Error(), cache.ErrorFailedToGet)
		assert.ErrorContains(t, c.Set(ctx, "k", "v", 0), cache.ErrorFailedToSet)
		assert.ErrorContains(t, c.Delete(ctx, "k"), cache.ErrorFailedToDelete)
		_, err = c.Incr(ctx, "counter")
		assert.ErrorContains(t, err, cache.ErrorFailedToIncr)
	})

	t.Run("incr", func(t *testing.T) {
		s, client := mockRedisServer(t)
		c := cache.NewRedisCache(client, time.Hour)

		for want := int64(1); want <= 3; want++ {
			got, err := c.Incr(ctx, "counter")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		assert.Zero(t, s.TTL("counter"))
	})
}

func listedNotes() []*entities.Note {
	return []*entities.Note{
		{
			ID:        "n1",
			UserID:    "user-1",
			Title:     "Cached",
			Content:   "<p>body</p>",
			Tags:      []string{"Work"},
			CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			UpdatedAt: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
		},
	}
}

func TestCachedNoteStore_List(t *testing.T) {
	ctx := context.Background()

	t.Run("second list is served from cache", func(t *testing.T) {
		s, client := mockRedisServer(t)
		next := new(mockNoteStore)
		next.On("List", mock.Anything, "user-1").Return(listedNotes(), nil).Once()

		store := cache.NewCachedNoteStore(next, cache.NewRedisCache(client, time.Hour), 0)

		first, err := store.List(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, s.Exists(cache.ListKey("user-1", 0)))

		second, err := store.List(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, first, second)
		next.AssertExpectations(t)
	})

	t.Run("store error is not cached", func(t *testing.T) {
		s, client := mockRedisServer(t)
		next := new(mockNoteStore)
		next.On("List", mock.Anything, "user-1").Return(nil, errDatabase).Once()

		store := cache.NewCachedNoteStore(next, cache.NewRedisCache(client, time.Hour), 0)

		_, err := store.List(ctx, "user-1")
		assert.ErrorIs(t, err, errDatabase)
		assert.False(t, s.Exists(cache.ListKey("user-1", 0)))
	})

	t.Run("unreadable entry is refetched", func(t *testing.T) {
		s, client := mockRedisServer(t)
		require.NoError(t, s.Set(cache.ListKey("user-1", 0), "{not json"))
		next := new(mockNoteStore)
		next.On("List", mock.Anything, "user-1").Return(listedNotes(), nil).Once()

		store := cache.NewCachedNoteStore(next, cache.NewRedisCache(client, time.Hour), 0)

		notes, err := store.List(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, notes, 1)
		next.AssertExpectations(t)
	})

	t.Run("list read before concurrent write is not served", func(t *testing.T) {
		s, client := mockRedisServer(t)
		next := new(mockNoteStore)
		store := cache.NewCachedNoteStore(next, cache.NewRedisCache(client, time.Hour), 0)

		next.On("Delete", mock.Anything, "user-1", "n1").Return(nil).Once()
		next.On("List", mock.Anything, "user-1").Return(listedNotes(), nil).Once().Run(func(mock.Arguments) {
			assert.NoError(t, store.Delete(ctx, "user-1", "n1"))
		})
		next.On("List", mock.Anything, "user-1").Return([]*entities.Note{}, nil).Once()

		stale, err := store.List(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, stale, 1)

		fresh, err := store.List(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, fresh)
		assert.True(t, s.Exists(cache.ListKey("user-1", 1)))
		next.AssertExpectations(t)
	})

	t.Run("unreadable generation bypasses cache", func(t *testing.T) {
		s, client := mockRedisServer(t)
		require.NoError(t, s.Set(cache.GenerationKey("user-1"), "oops"))
		next := new(mockNoteStore)
		next.On("List", mock.Anything, "user-1").Return(listedNotes(), nil).Twice()

		store := cache.NewCachedNoteStore(next, cache.NewRedisCache(client, time.Hour), 0)

		for range 2 {
			_, err := store.List(ctx, "user-1")
			require.NoError(t, err)
		}
		assert.False(t, s.Exists(cache.ListKey("user-1", 0)))
		next.AssertExpectations(t)
	})

	t.Run("cache outage falls through", func(t *testing.T) {
		s, client := mockRedisServer(t)
		s.SetError("LOADING")
		next := new(mockNoteStore)
		next.On("List", mock.Anything, "user-1").Return(listedNotes(), nil).Twice()

		store := cache.NewCachedNoteStore(next, cache.NewRedisCache(client, time.Hour), 0)

		for range 2 {
			notes, err := store.List(ctx, "user-1")
			require.NoError(t, err)
			assert.Len(t, notes, 1)
		}
		next.AssertExpectations(t)
	})
}

func TestCachedNoteStore_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	content := "new"

	tests := []struct {
		name  string
		setup func(next *mockNoteStore)
		write func(store *cache.CachedNoteStore) error
	}{
		{
			name: "create",
			setup: func(next *mockNoteStore) {
				next.On("Create", mock.Anything, "user-1", entities.NewNoteFields()).Return(listedNotes()[0], nil)
			},
			write: func(store *cache.CachedNoteStore) error {
				_, err := store.Create(ctx, "user-1", entities.NewNoteFields())
				return err
			},
		},
		{
			name: "update",
			setup: func(next *mockNoteStore) {
				next.On("Update", mock.Anything, "user-1", "n1", mock.Anything).Return(listedNotes()[0], nil)
			},
			write: func(store *cache.CachedNoteStore) error {
				_, err := store.Update(ctx, "user-1", "n1", entities.NoteUpdate{Content: &content})
				return err
			},
		},
		{
			name: "delete",
			setup: func(next *mockNoteStore) {
				next.On("Delete", mock.Anything, "user-1", "n1").Return(nil)
			},
			write: func(store *cache.CachedNoteStore) error {
				return store.Delete(ctx, "user-1", "n1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, client := mockRedisServer(t)
			require.NoError(t, s.Set(cache.ListKey("user-1", 0), "[]"))
			require.NoError(t, s.Set(cache.ListKey("user-2", 0), "[]"))

			next := new(mockNoteStore)
			tt.setup(next)
			store := cache.NewCachedNoteStore(next, cache.NewRedisCache(client, time.Hour), 0)

			require.NoError(t, tt.write(store))
			generation, err := s.Get(cache.GenerationKey("user-1"))
			require.NoError(t, err)
			assert.Equal(t, "1", generation)
			assert.False(t, s.Exists(cache.GenerationKey("user-2")))
			next.AssertExpectations(t)
		})
	}

	t.Run("failed write keeps cache", func(t *testing.T) {
		s, client := mockRedisServer(t)
		require.NoError(t, s.Set(cache.ListKey("user-1", 0), "[]"))

		next := new(mockNoteStore)
		next.On("Delete", mock.Anything, "user-1", "n1").Return(errDatabase)
		store := cache.NewCachedNoteStore(next, cache.NewRedisCache(client, time.Hour), 0)

		assert.ErrorIs(t, store.Delete(ctx, "user-1", "n1"), errDatabase)
		assert.True(t, s.Exists(cache.ListKey("user-1", 0)))
		assert.False(t, s.Exists(cache.GenerationKey("user-1")))
	})

	t.Run("get passes through", func(t *testing.T) {
		_, client := mockRedisServer(t)
		next := new(mockNoteStore)
		next.On("Get", mock.Anything, "user-1", "n1").Return(listedNotes()[0], nil)
		store := cache.NewCachedNoteStore(next, cache.NewRedisCache(client, time.Hour), 0)

		note, err := store.Get(ctx, "user-1", "n1")
		require.NoError(t, err)
		assert.Equal(t, "Cached", note.Title)
	})
}
