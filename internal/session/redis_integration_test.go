//go:build integration

package session

import (
	"context"
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
	_, err = store.Get(ctx, KeyTheme)
	assert.True(t, IsNotFound(err))

	s := New(store)
	require.NoError(t, s.SetTheme(ctx, ThemeDark))
	assert.Equal(t, ThemeDark, s.Theme(ctx))

	require.NoError(t, store.Delete(ctx, KeyTheme))
	assert.Equal(t, ThemeLight, s.Theme(ctx))
}
