package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// OutcomeDeduper tracks processed outcome-report idempotency keys so a
// retried delivery is never applied twice. Forget releases a key whose
// handling failed, keeping it retryable.
type OutcomeDeduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type redisOutcomeDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (d *redisOutcomeDeduper) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+":"+key, "1", d.ttl).Result()
	if err != nil {
		return false, err
	}
	// false => already exists => duplicate
	return !ok, nil
}

func (d *redisOutcomeDeduper) Forget(ctx context.Context, key string) error {
	return d.client.Del(ctx, d.prefix+":"+key).Err()
}

type memoryOutcomeDeduper struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	ttl    time.Duration
	nextGC time.Time
}

func newMemoryOutcomeDeduper(ttl time.Duration) *memoryOutcomeDeduper {
	now := time.Now()
	return &memoryOutcomeDeduper{
		seen:   make(map[string]time.Time),
		ttl:    ttl,
		nextGC: now.Add(ttl),
	}
}

func (d *memoryOutcomeDeduper) Seen(_ context.Context, key string) (bool, error) {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.seen[key]; ok && exp.After(now) {
		return true, nil
	}

	d.seen[key] = now.Add(d.ttl)
	if now.After(d.nextGC) {
		for k, exp := range d.seen {
			if exp.Before(now) {
				delete(d.seen, k)
			}
		}
		d.nextGC = now.Add(d.ttl)
	}

	return false, nil
}

func (d *memoryOutcomeDeduper) Forget(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
	return nil
}

// NewOutcomeDeduper builds a Redis deduper and falls back to in-memory on
// failure. The in-memory fallback only protects a single instance; run
// Redis when multiple scheduler replicas share the queue.
func NewOutcomeDeduper(addr, pass string, db int, ttl time.Duration) (OutcomeDeduper, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if addr == "" {
		return newMemoryOutcomeDeduper(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return newMemoryOutcomeDeduper(ttl), err
	}

	return &redisOutcomeDeduper{
		client: client,
		prefix: "outcome:key",
		ttl:    ttl,
	}, nil
}

// OutcomeDedup drops replayed outcome reports by Idempotency-Key. A replay
// gets a 200 so the worker stops retrying; requests without a key pass
// through (single-delivery callers). Only an applied outcome burns the
// key: when the handler answers 5xx the key is released again, so the
// worker's retry after a storage failure still reaches the handler.
func OutcomeDedup(deduper OutcomeDeduper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if deduper == nil {
				return next(c)
			}

			key := c.Request().Header.Get("Idempotency-Key")
			if key == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			isDuplicate, err := deduper.Seen(ctx, key)
			if err != nil {
				// Dedup is best effort; never block a report on it.
				return next(c)
			}
			if isDuplicate {
				return c.JSON(http.StatusOK, map[string]interface{}{
					"status": true,
					"msg":    "Duplicate outcome ignored",
					"obj":    nil,
				})
			}

			err = next(c)
			if err != nil || c.Response().Status >= http.StatusInternalServerError {
				// If the release itself fails the key stays burned until
				// its TTL; the lease reaper re-queues the job then.
				_ = deduper.Forget(ctx, key)
			}
			return err
		}
	}
}
