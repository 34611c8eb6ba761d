package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"divdataset/internal/config"
	"divdataset/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSQLiteCache(t *testing.T) (*SQLCache, *fakeClock) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	db, err := OpenDB(context.Background(), config.CacheSQLite, path)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := NewSQLCache(db, nil).WithClock(clock.Now)
	t.Cleanup(func() { c.Close() })
	return c, clock
}

// exerciseCache runs the behaviour every SessionCache must share
func exerciseCache(t *testing.T, c ports.SessionCache) {
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte(`{"a":1}`), time.Hour))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(got))

	require.NoError(t, c.Set(ctx, "k", []byte(`{"a":2}`), time.Hour))
	got, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":2}`, string(got))

	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"), "second delete is a no-op")
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemoryCache(time.Minute))
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("x"), 20*time.Millisecond))
	require.NoError(t, c.Set(ctx, "long", []byte("y"), time.Hour))
	time.Sleep(60 * time.Millisecond)

	_, ok, _ := c.Get(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "long")
	assert.True(t, ok)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, time.Hour))
	value[0] = 'z'

	got, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, 1, c.Len())
}

func TestSQLCache(t *testing.T) {
	c, _ := newSQLiteCache(t)
	exerciseCache(t, c)
}

func TestSQLCacheExpiryAndRefresh(t *testing.T) {
	c, clock := newSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "s", []byte("v1"), time.Hour))
	clock.Advance(50 * time.Minute)

	// Rewriting restarts the TTL
	require.NoError(t, c.Set(ctx, "s", []byte("v2"), time.Hour))
	clock.Advance(50 * time.Minute)

	got, ok, err := c.Get(ctx, "s")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", string(got))

	clock.Advance(11 * time.Minute)
	_, ok, err = c.Get(ctx, "s")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLCacheCleanup(t *testing.T) {
	c, clock := newSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "old", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "new", []byte("2"), time.Hour))
	clock.Advance(2 * time.Minute)

	n, err := c.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := c.Get(ctx, "new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenDBRejectsUnknownBackend(t *testing.T) {
	_, err := OpenDB(context.Background(), "redis", "localhost:6379")
	assert.Error(t, err)
}
