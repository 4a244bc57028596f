// Package cache keeps recently fetched node roots so the gateway does not
// ask a node for its roots on every page view.
package cache

import (
	"context"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/redis/go-redis/v9"

	"github.com/Laisky/logviewer/library/config"
	"github.com/Laisky/logviewer/library/log"
	models "github.com/Laisky/logviewer/library/models/files"
)

const defaultTTL = time.Minute

// RootsCache stores the roots of a node for a bounded time.
type RootsCache interface {
	// Get returns the cached roots of nodeID. ok is false on a miss.
	Get(ctx context.Context, nodeID string) (roots []models.RootDirectory, ok bool, err error)
	Set(ctx context.Context, nodeID string, roots []models.RootDirectory) error
	// Delete drops the cached roots of nodeID.
	Delete(ctx context.Context, nodeID string) error
}

// Settings configures the roots cache.
type Settings struct {
	// TTL is how long an entry stays valid. A negative TTL disables caching.
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LoadSettings reads settings.gateway.cache.*.
func LoadSettings(get config.Getter) Settings {
	ttl := defaultTTL
	if seconds := get.Int("settings.gateway.cache.ttl_seconds", 0); seconds != 0 {
		ttl = time.Duration(seconds) * time.Second
	}
	return Settings{
		TTL:           ttl,
		RedisAddr:     get.String("settings.gateway.cache.redis.addr", ""),
		RedisPassword: get.String("settings.gateway.cache.redis.password", ""),
		RedisDB:       get.Int("settings.gateway.cache.redis.db", 0),
	}
}

// New builds the cache described by settings: nil when caching is disabled,
// a redis-backed cache when an address is configured, otherwise an
// in-process one.
func New(ctx context.Context, settings Settings, logger logSDK.Logger) (RootsCache, error) {
	if logger == nil {
		logger = log.Logger.Named("roots_cache")
	}
	if settings.TTL < 0 {
		logger.Info("roots cache disabled")
		return nil, nil
	}
	if settings.TTL == 0 {
		settings.TTL = defaultTTL
	}

	if settings.RedisAddr == "" {
		logger.Info("use in-memory roots cache", zap.Duration("ttl", settings.TTL))
		return NewMemory(settings.TTL), nil
	}

	rc := NewRedis(&redis.Options{
		Addr:     settings.RedisAddr,
		Password: settings.RedisPassword,
		DB:       settings.RedisDB,
	}, settings.TTL)
	if err := rc.Ping(ctx); err != nil {
		return nil, errors.Wrapf(err, "ping redis %s", settings.RedisAddr)
	}
	logger.Info("use redis roots cache",
		zap.String("addr", settings.RedisAddr),
		zap.Duration("ttl", settings.TTL))
	return rc, nil
}
