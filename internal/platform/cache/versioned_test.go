package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Count int `json:"count"`
}

func newTestCache(t *testing.T) (*Versioned, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "dashboard", time.Minute), mr
}

func TestFetchJSONReadThrough(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return summary{Count: calls}, nil
	}

	key, err := c.BuildKey(ctx, "summary")
	require.NoError(t, err)
	assert.Equal(t, "dashboard:summary:v1", key)

	var first, second summary
	require.NoError(t, c.FetchJSON(ctx, key, &first, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &second, loader))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, second.Count)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestBumpInvalidates(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return summary{Count: calls}, nil
	}

	key, err := c.BuildKey(ctx, "summary")
	require.NoError(t, err)
	var got summary
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))

	require.NoError(t, c.Bump(ctx))

	key, err = c.BuildKey(ctx, "summary")
	require.NoError(t, err)
	assert.Equal(t, "dashboard:summary:v2", key)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, 2, got.Count)
}

func TestFetchJSONLoaderError(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("db down")

	var got summary
	err := c.FetchJSON(ctx, "dashboard:summary:v1", &got, func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("dashboard:summary:v1"))
}

func TestFetchJSONCollapsesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return summary{Count: 7}, nil
	}

	var wg sync.WaitGroup
	results := make([]summary, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.FetchJSON(ctx, "dashboard:slow:v1", &results[i], loader))
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(4))
	for _, r := range results {
		assert.Equal(t, 7, r.Count)
	}
}

func TestNilClientCallsLoader(t *testing.T) {
	c := NewVersioned(nil, "dashboard", time.Minute)
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "summary")
	require.NoError(t, err)
	assert.Equal(t, "dashboard:summary", key)

	var got summary
	require.NoError(t, c.FetchJSON(ctx, key, &got, func(context.Context) (any, error) { return summary{Count: 3}, nil }))
	assert.Equal(t, 3, got.Count)
	assert.NoError(t, c.Bump(ctx))
}

func TestSubscribeReceivesBump(t *testing.T) {
	c, _ := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan int64, 1)
	require.NoError(t, c.Subscribe(ctx, func(v int64) { got <- v }))
	_, err := c.Version(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))

	select {
	case v := <-got:
		assert.Equal(t, int64(2), v)
	case <-time.After(2 * time.Second):
		t.Fatal("bump notification not received")
	}
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	assert.Error(t, Ping(context.Background(), client))
}
