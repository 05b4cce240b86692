package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/paperpulse/internal/core/domain"
	"github.com/kirillkom/paperpulse/internal/core/ports"
)

const keyPrefix = "paperpulse:document:"

// client is the part of *redis.Client the cache uses.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Repository is a read-through cache in front of another repository. Cache
// failures are logged and never fail the call.
type Repository struct {
	inner  ports.MetadataRepository
	cache  client
	ttl    time.Duration
	logger *slog.Logger
}

func New(inner ports.MetadataRepository, cache client, ttl time.Duration, logger *slog.Logger) *Repository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(id string) string {
	return keyPrefix + id
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.DocumentMetadata, error) {
	raw, err := r.cache.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var meta domain.DocumentMetadata
		if jsonErr := json.Unmarshal(raw, &meta); jsonErr == nil {
			return &meta, nil
		}
		r.logger.Warn("cache_entry_corrupt", "document_id", id)
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("cache_get_failed", "document_id", id, "error", err)
	}

	meta, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, meta)
	return meta, nil
}

func (r *Repository) List(ctx context.Context, opts domain.ListOptions) ([]domain.DocumentMetadata, error) {
	return r.inner.List(ctx, opts)
}

func (r *Repository) Upsert(ctx context.Context, meta *domain.DocumentMetadata) error {
	if err := r.inner.Upsert(ctx, meta); err != nil {
		return err
	}
	r.invalidate(ctx, meta.ID)
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *Repository) store(ctx context.Context, meta *domain.DocumentMetadata) {
	payload, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(meta.ID), payload, r.ttl).Err(); err != nil {
		r.logger.Warn("cache_set_failed", "document_id", meta.ID, "error", err)
	}
}

func (r *Repository) invalidate(ctx context.Context, id string) {
	if err := r.cache.Del(ctx, cacheKey(id)).Err(); err != nil {
		r.logger.Warn("cache_invalidate_failed", "document_id", id, "error", err)
	}
}
