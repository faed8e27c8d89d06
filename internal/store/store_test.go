package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinabrahms/hotseatchess/internal/config"
)

const sampleState = "v1|rnbqkbnrpppppppp________________________________PPPPPPPPRNBQKBNR|w|0|----|3600|3600|play||||"

// runStoreTests checks the behaviour every back-end shares.
func runStoreTests(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("load missing", func(t *testing.T) {
		require.NoError(t, s.DeleteAll(ctx))
		_, err := s.Load(ctx, "nothing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, s.DeleteAll(ctx))
		require.NoError(t, s.Save(ctx, Record{Name: "  sicilian ", State: sampleState, SavedAt: now}))

		rec, err := s.Load(ctx, "sicilian")
		require.NoError(t, err)
		assert.Equal(t, "sicilian", rec.Name)
		assert.Equal(t, sampleState, rec.State)
		assert.True(t, now.Equal(rec.SavedAt), "saved at %v, loaded %v", now, rec.SavedAt)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.DeleteAll(ctx))
		require.NoError(t, s.Save(ctx, Record{Name: "game", State: "old", SavedAt: now}))
		require.NoError(t, s.Save(ctx, Record{Name: "game", State: "new", SavedAt: now.Add(time.Minute)}))

		rec, err := s.Load(ctx, "game")
		require.NoError(t, err)
		assert.Equal(t, "new", rec.State)

		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("list sorted", func(t *testing.T) {
		require.NoError(t, s.DeleteAll(ctx))
		for _, name := range []string{"charlie", "alpha", "bravo"} {
			require.NoError(t, s.Save(ctx, Record{Name: name, State: sampleState, SavedAt: now}))
		}
		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "alpha", list[0].Name)
		assert.Equal(t, "bravo", list[1].Name)
		assert.Equal(t, "charlie", list[2].Name)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteAll(ctx))
		require.NoError(t, s.Save(ctx, Record{Name: "keep", State: sampleState, SavedAt: now}))
		require.NoError(t, s.Save(ctx, Record{Name: "drop", State: sampleState, SavedAt: now}))

		require.NoError(t, s.Delete(ctx, "drop"))
		assert.ErrorIs(t, s.Delete(ctx, "drop"), ErrNotFound)

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "keep", list[0].Name)
	})

	t.Run("delete all", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, Record{Name: AutosaveName, State: sampleState, SavedAt: now}))
		require.NoError(t, s.DeleteAll(ctx))
		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", "   ", "tab\there", strings.Repeat("x", maxNameLen+1)} {
			assert.ErrorIs(t, s.Save(ctx, Record{Name: name, State: sampleState}), ErrInvalidName, "name %q", name)
			_, err := s.Load(ctx, name)
			assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runStoreTests(t, s)
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(rdb, ttl)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedisStore(t, 0)
	runStoreTests(t, s)
}

func TestRedisStoreExpiry(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Record{Name: "short", State: sampleState, SavedAt: time.Now()}))
	assert.True(t, mr.Exists(redisKeyPrefix+"short"))

	mr.FastForward(2 * time.Hour)

	_, err := s.Load(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	members, _ := mr.Members(redisIndexKey)
	assert.Empty(t, members, "expired names should be dropped from the index")
}

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := Open(context.Background(), config.StoreConfig{Driver: "redis", RedisURL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &RedisStore{}, s)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(context.Background(), config.StoreConfig{Driver: "bolt"})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.StoreConfig{Driver: "redis"})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.StoreConfig{Driver: "postgres"})
	assert.Error(t, err)
}

// TestPostgresStore runs against a real database when HOTSEAT_TEST_POSTGRES_URL
// is set.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("HOTSEAT_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("HOTSEAT_TEST_POSTGRES_URL not set")
	}
	s, err := NewPostgresStore(context.Background(), url)
	require.NoError(t, err)
	defer s.Close()
	runStoreTests(t, s)
}
