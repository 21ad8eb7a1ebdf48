package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "caseform:catalog:snapshot"

// RedisSnapshotSource decorates another source with a shared redis snapshot so
// sibling processes reuse one catalog load. A redis miss or decode failure
// falls through to the inner source; redis being down must not block the form.
type RedisSnapshotSource struct {
	inner Source
	rdb   *redis.Client
	ttl   time.Duration
}

func NewRedisSnapshotSource(inner Source, rdb *redis.Client, ttl time.Duration) *RedisSnapshotSource {
	return &RedisSnapshotSource{inner: inner, rdb: rdb, ttl: ttl}
}

func (s *RedisSnapshotSource) Load(ctx context.Context) (Data, error) {
	// Any redis error, unreachable server included, counts as a cache miss.
	raw, err := s.rdb.Get(ctx, snapshotKey).Bytes()
	if err == nil {
		var data Data
		if decodeErr := json.Unmarshal(raw, &data); decodeErr == nil {
			return data, nil
		}
	}

	data, err := s.inner.Load(ctx)
	if err != nil {
		return Data{}, err
	}

	if raw, err := json.Marshal(data); err == nil {
		// Best effort: the snapshot is an optimization, not a durability layer.
		_ = s.rdb.Set(ctx, snapshotKey, raw, s.ttl).Err()
	}
	return data, nil
}

// Invalidate drops the shared snapshot, forcing the next load to hit the
// inner source. Used after the data team republishes reference data.
func (s *RedisSnapshotSource) Invalidate(ctx context.Context) error {
	if err := s.rdb.Del(ctx, snapshotKey).Err(); err != nil {
		return fmt.Errorf("invalidate catalog snapshot: %w", err)
	}
	return nil
}
