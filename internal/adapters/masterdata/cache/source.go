// Package cache decorates a masterdata.Source with a Redis or in-process cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"3tcapital/ms_extraccion_core/internal/core/masterdata"
	"3tcapital/ms_extraccion_core/internal/infrastructure/cache"
)

const keyPrefix = "masterdata"

// Source caches whole tables of an inner source. Concurrent misses for the
// same table share one load. Cache failures fall back to the inner source.
type Source struct {
	inner  masterdata.Source
	client *redis.Client
	local  *cache.TTLCache[[]masterdata.Candidate]
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewSource creates a cached source. A nil client keeps tables in process memory.
func NewSource(inner masterdata.Source, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Source {
	s := &Source{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "masterdata_cache"),
	}
	if client == nil {
		s.local = cache.NewTTLCache[[]masterdata.Candidate]()
	}
	return s
}

// Key returns the cache key of a merchant's table.
func Key(merchantID string, kind masterdata.Kind) string {
	return strings.Join([]string{keyPrefix, merchantID, string(kind)}, ":")
}

// Load returns the cached table, loading it from the inner source on a miss.
func (s *Source) Load(ctx context.Context, merchantID string, kind masterdata.Kind) ([]masterdata.Candidate, error) {
	key := Key(merchantID, kind)

	if candidates, ok := s.get(ctx, key); ok {
		return candidates, nil
	}

	result := s.group.DoChan(key, func() (interface{}, error) {
		candidates, err := s.inner.Load(context.WithoutCancel(ctx), merchantID, kind)
		if err != nil {
			return nil, err
		}
		s.set(context.WithoutCancel(ctx), key, candidates)
		return candidates, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]masterdata.Candidate), nil
	}
}

// Lookup filters the cached table by identifiers.
func (s *Source) Lookup(ctx context.Context, merchantID string, kind masterdata.Kind, identifiers []string) ([]masterdata.Candidate, error) {
	candidates, err := s.Load(ctx, merchantID, kind)
	if err != nil {
		return nil, err
	}
	return masterdata.FilterByIdentifiers(candidates, identifiers), nil
}

// Invalidate drops the cached table so the next Load reads the inner source.
func (s *Source) Invalidate(ctx context.Context, merchantID string, kind masterdata.Kind) error {
	key := Key(merchantID, kind)
	if s.client == nil {
		s.local.Delete(key)
		return nil
	}
	return s.client.Del(ctx, key).Err()
}

func (s *Source) get(ctx context.Context, key string) ([]masterdata.Candidate, bool) {
	if s.client == nil {
		return s.local.Get(key)
	}

	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("master data cache read failed", "key", key, "error", err)
		return nil, false
	}

	var candidates []masterdata.Candidate
	if err := json.Unmarshal(payload, &candidates); err != nil {
		s.logger.Warn("discarding unreadable master data cache entry", "key", key, "error", err)
		return nil, false
	}
	return candidates, true
}

func (s *Source) set(ctx context.Context, key string, candidates []masterdata.Candidate) {
	if s.client == nil {
		s.local.Set(key, candidates, s.ttl)
		return
	}

	raw, err := json.Marshal(candidates)
	if err != nil {
		s.logger.Warn("master data cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("master data cache write failed", "key", key, "error", err)
	}
}

var _ masterdata.Source = (*Source)(nil)
