package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func records(ids ...string) []catalog.Record {
	out := make([]catalog.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, catalog.Record{ID: id, Name: "name " + id})
	}
	return out
}

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	_, err := NewCollectionCache(0)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewQueryCache[string](-time.Second)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestCollectionCacheFreshness(t *testing.T) {
	clock := newFakeClock()
	c, err := NewCollectionCache(time.Hour, WithClock(clock.Now))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, c.Interval())

	assert.True(t, c.ShouldRefresh(), "never refreshed")
	assert.Empty(t, c.Get())
	_, ok := c.LastRefreshed()
	assert.False(t, ok)

	assert.True(t, c.Replace(records("a", "b"), false))
	assert.False(t, c.ShouldRefresh())
	assert.Equal(t, 2, c.Len())

	at, ok := c.LastRefreshed()
	require.True(t, ok)
	assert.Equal(t, clock.Now(), at)

	clock.Advance(59 * time.Minute)
	assert.False(t, c.ShouldRefresh())

	clock.Advance(time.Minute)
	assert.True(t, c.ShouldRefresh(), "exactly one interval old")
}

func TestCollectionCacheFailedEmptyReplaceKeepsSnapshot(t *testing.T) {
	clock := newFakeClock()
	c, err := NewCollectionCache(time.Hour, WithClock(clock.Now))
	require.NoError(t, err)

	require.True(t, c.Replace(records("a", "b", "c"), false))
	before, _ := c.LastRefreshed()

	clock.Advance(2 * time.Hour)
	assert.False(t, c.Replace(nil, true))
	assert.Len(t, c.Get(), 3)

	after, _ := c.LastRefreshed()
	assert.Equal(t, before, after, "timestamp must not move on a failed refresh")
	assert.True(t, c.ShouldRefresh())
}

func TestCollectionCacheEmptySuccessReplaces(t *testing.T) {
	c, err := NewCollectionCache(time.Hour)
	require.NoError(t, err)

	require.True(t, c.Replace(records("a"), false))
	assert.True(t, c.Replace(nil, false))
	assert.Empty(t, c.Get())
	assert.NotNil(t, c.Get())
	assert.False(t, c.ShouldRefresh())
}

func TestCollectionCachePartialFailureReplaces(t *testing.T) {
	c, err := NewCollectionCache(time.Hour)
	require.NoError(t, err)

	require.True(t, c.Replace(records("a", "b", "c"), false))
	assert.True(t, c.Replace(records("a"), true))
	assert.Equal(t, records("a"), c.Get())
}

func TestCollectionCacheGetReturnsCopy(t *testing.T) {
	c, err := NewCollectionCache(time.Hour)
	require.NoError(t, err)

	in := records("a", "b")
	c.Replace(in, false)
	in[0].Name = "mutated input"

	got := c.Get()
	got[1].Name = "mutated output"

	assert.Equal(t, records("a", "b"), c.Get())
}

func TestCollectionCacheConcurrentAccess(t *testing.T) {
	c, err := NewCollectionCache(time.Millisecond)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Replace(records(fmt.Sprintf("%d-%d", i, j)), false)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := c.Get()
				assert.LessOrEqual(t, len(snap), 1)
				c.ShouldRefresh()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}

func TestQueryCacheExpiry(t *testing.T) {
	clock := newFakeClock()
	q, err := NewQueryCache[string](30*time.Minute, WithClock(clock.Now), WithName("test"))
	require.NoError(t, err)

	_, ok := q.Get("k")
	assert.False(t, ok)

	q.Put("k", []string{"x", "y"})
	got, ok := q.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, got)

	clock.Advance(29 * time.Minute)
	_, ok = q.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok = q.Get("k")
	assert.False(t, ok, "expired at exactly one interval")
	assert.Equal(t, 0, q.Len(), "expired entry purged on read")
}

func TestQueryCachePutOverwritesAndResetsAge(t *testing.T) {
	clock := newFakeClock()
	q, err := NewQueryCache[int](time.Hour, WithClock(clock.Now))
	require.NoError(t, err)

	q.Put("k", []int{1})
	clock.Advance(50 * time.Minute)
	q.Put("k", []int{2, 3})
	clock.Advance(50 * time.Minute)

	got, ok := q.Get("k")
	require.True(t, ok)
	assert.Equal(t, []int{2, 3}, got)
}

func TestQueryCacheKeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	q, err := NewQueryCache[string](time.Hour, WithClock(clock.Now))
	require.NoError(t, err)

	q.Put("old", []string{"o"})
	clock.Advance(45 * time.Minute)
	q.Put("new", []string{"n"})
	clock.Advance(15 * time.Minute)

	_, ok := q.Get("old")
	assert.False(t, ok)
	got, ok := q.Get("new")
	require.True(t, ok)
	assert.Equal(t, []string{"n"}, got)
	assert.Equal(t, 1, q.Len())
}

func TestQueryCacheClearAll(t *testing.T) {
	q, err := NewQueryCache[string](time.Hour)
	require.NoError(t, err)

	q.Put("a", []string{"1"})
	q.Put("b", []string{"2"})
	q.ClearAll()

	assert.Equal(t, 0, q.Len())
	_, ok := q.Get("a")
	assert.False(t, ok)

	q.ClearAll()
	assert.Equal(t, 0, q.Len())
}

func TestQueryCacheConcurrentAccess(t *testing.T) {
	q, err := NewQueryCache[int](time.Hour)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			for j := 0; j < 50; j++ {
				q.Put(key, []int{i, j})
				if got, ok := q.Get(key); ok {
					assert.Len(t, got, 2)
				}
				if j%25 == 0 {
					q.ClearAll()
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, q.Len(), 4)
}
