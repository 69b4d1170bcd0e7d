// Package predictcache is a Redis-backed TTL cache of prediction responses,
// keyed by the four inputs to predict(). It follows the same key-builder +
// thin *redis.Client wrapper shape as the game-state repository it is
// grounded on, generalised from per-game keys to per-matchup keys.
package predictcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/letsgopredict/battlepredict/internal/repository/redis"
)

// defaultTTL bounds how long a cached prediction survives a registry
// promotion it doesn't know about yet; callers additionally invalidate the
// whole cache wholesale on reload (spec.md §4.7 fallback/reload policy).
const defaultTTL = 10 * time.Minute

// Response mirrors the predictor's predict() result shape, cached verbatim.
type Response struct {
	Winner           int     `json:"winner"`
	PA               float64 `json:"p_a"`
	PB               float64 `json:"p_b"`
	ConfidenceBucket string  `json:"confidence_bucket"`
	ModelVersion     int     `json:"model_version"`
}

// Cache wraps a redis.Client with prediction-specific key building and TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps an existing redis client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: defaultTTL}
}

func key(speciesA, speciesB, moveA, moveB int) string {
	return fmt.Sprintf("predict:%d:%d:%d:%d", speciesA, speciesB, moveA, moveB)
}

// Get returns a cached Response, or ok=false on a cache miss.
func (c *Cache) Get(ctx context.Context, speciesA, speciesB, moveA, moveB int) (Response, bool, error) {
	data, err := c.client.Underlying().Get(ctx, key(speciesA, speciesB, moveA, moveB)).Bytes()
	if err == goredis.Nil {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, fmt.Errorf("predictcache: get: %w", err)
	}
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return Response{}, false, fmt.Errorf("predictcache: decode: %w", err)
	}
	return r, true, nil
}

// Set stores a Response with the cache's TTL.
func (c *Cache) Set(ctx context.Context, speciesA, speciesB, moveA, moveB int, r Response) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("predictcache: encode: %w", err)
	}
	return c.client.Underlying().Set(ctx, key(speciesA, speciesB, moveA, moveB), data, c.ttl).Err()
}

// InvalidateAll drops every cached prediction, called when the predictor
// reloads a new production bundle (spec.md §4.6: "a predictor ... is
// unaffected by subsequent stage transitions until it explicitly reloads").
func (c *Cache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Underlying().Scan(ctx, 0, "predict:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("predictcache: scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Underlying().Del(ctx, keys...).Err()
}
