package cache

import (
	"context"
	"encoding/json"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"

	models "github.com/Laisky/logviewer/library/models/files"
)

const redisKeyPrefix = "logviewer/roots/"

// Redis is a RootsCache shared by every gateway replica.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects lazily to the server described by opt.
func NewRedis(opt *redis.Options, ttl time.Duration) *Redis {
	return &Redis{
		client: redis.NewClient(opt),
		ttl:    ttl,
	}
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return errors.WithStack(r.client.Ping(ctx).Err())
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get implements RootsCache.
func (r *Redis) Get(ctx context.Context, nodeID string) ([]models.RootDirectory, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+nodeID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "get roots of %q", nodeID)
	}

	var roots []models.RootDirectory
	if err = json.Unmarshal(raw, &roots); err != nil {
		return nil, false, errors.Wrapf(err, "decode cached roots of %q", nodeID)
	}
	return roots, true, nil
}

// Set implements RootsCache.
func (r *Redis) Set(ctx context.Context, nodeID string, roots []models.RootDirectory) error {
	raw, err := json.Marshal(roots)
	if err != nil {
		return errors.Wrap(err, "encode roots")
	}
	if err = r.client.Set(ctx, redisKeyPrefix+nodeID, raw, r.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set roots of %q", nodeID)
	}
	return nil
}

// Delete implements RootsCache.
func (r *Redis) Delete(ctx context.Context, nodeID string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+nodeID).Err(); err != nil {
		return errors.Wrapf(err, "delete roots of %q", nodeID)
	}
	return nil
}
