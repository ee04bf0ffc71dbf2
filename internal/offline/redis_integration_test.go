//go:build integration

package offline

import (
	"context"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRedisStore(rdb, "test")
	_, err = store.Get(ctx, CacheName("v1"), "http://x/index.html")
	assert.ErrorIs(t, err, ErrMiss)

	h := http.Header{"Content-Type": {"text/html"}}
	require.NoError(t, store.Put(ctx, CacheName("v1"), "http://x/index.html", &Entry{Status: 200, Header: h, Body: []byte("<html>")}))
	require.NoError(t, store.Put(ctx, CacheName("v2"), "http://x/index.html", &Entry{Status: 200, Body: []byte("<html>2")}))

	e, err := store.Get(ctx, CacheName("v1"), "http://x/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<html>", string(e.Body))
	assert.Equal(t, "text/html", e.Header.Get("Content-Type"))

	w, err := New(Config{Store: store, Version: "v2", Upstream: "http://x"})
	require.NoError(t, err)
	deleted, err := w.Activate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{CacheName("v1")}, deleted)

	names, err := store.Caches(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{CacheName("v2")}, names)
}
