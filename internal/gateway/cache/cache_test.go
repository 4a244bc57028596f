package cache

import (
	"context"
	"testing"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/logviewer/library/config"
	models "github.com/Laisky/logviewer/library/models/files"
)

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mem := NewMemory(time.Minute)
	mem.now = func() time.Time { return now }

	ctx := context.Background()
	_, ok, err := mem.Get(ctx, "web-1")
	require.NoError(t, err)
	require.False(t, ok)

	roots := []models.RootDirectory{{Name: "logs", Path: "/var/log"}}
	require.NoError(t, mem.Set(ctx, "web-1", roots))
	roots[0].Name = "mutated"

	got, ok, err := mem.Get(ctx, "web-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "logs", got[0].Name)

	now = now.Add(time.Minute)
	_, ok, err = mem.Get(ctx, "web-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mem.Set(ctx, "db-1", roots))
	require.NoError(t, mem.Delete(ctx, "db-1"))
	_, ok, _ = mem.Get(ctx, "db-1")
	require.False(t, ok)
	require.Empty(t, mem.entries)
}

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	settings := LoadSettings(config.MapGetter(map[string]any{}))
	require.Equal(t, time.Minute, settings.TTL)
	require.Empty(t, settings.RedisAddr)

	settings = LoadSettings(config.MapGetter(map[string]any{
		"settings": map[string]any{"gateway": map[string]any{"cache": map[string]any{
			"ttl_seconds": -1,
			"redis":       map[string]any{"addr": "redis:6379", "db": 2},
		}}},
	}))
	require.Negative(t, settings.TTL)
	require.Equal(t, "redis:6379", settings.RedisAddr)
	require.Equal(t, 2, settings.RedisDB)
}

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()

	logger := logSDK.Shared.Named("cache_test")

	c, err := New(context.Background(), Settings{TTL: -time.Second}, logger)
	require.NoError(t, err)
	require.Nil(t, c)

	c, err = New(context.Background(), Settings{}, logger)
	require.NoError(t, err)
	require.IsType(t, &Memory{}, c)
}
