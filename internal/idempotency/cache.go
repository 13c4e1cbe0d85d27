package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"trade_engine/internal/metrics"
	"trade_engine/internal/models"
	"trade_engine/internal/store"
)

// ErrUnavailable marks a failed lookup of a recorded response.
var ErrUnavailable = errors.New("idempotency store unavailable")

// Cache maps (operation, key) to the first successfully committed response.
// Concurrent calls with the same pair share one execution. The cache only
// reads: the executing call commits its record together with its own
// changes, so a failed execution leaves nothing behind and a retry runs again.
type Cache struct {
	store  store.IdempotencyStore
	group  singleflight.Group
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

type Config struct {
	// TTL of zero keeps records forever.
	TTL           time.Duration `mapstructure:"ttl"`
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
}

// Func computes a response. When rec is not nil, Func fills rec.Payload and
// commits rec in the same store transaction as its other changes.
type Func func(ctx context.Context, rec *models.IdempotencyRecord) ([]byte, error)

func NewCache(st store.IdempotencyStore, cfg Config, logger *zap.Logger) *Cache {
	return &Cache{
		store:  st,
		ttl:    cfg.TTL,
		now:    time.Now,
		logger: logger.Named("idempotency"),
	}
}

// Get returns the recorded response for (op, key).
func (c *Cache) Get(ctx context.Context, op, key string) ([]byte, bool, error) {
	payload, ok, err := c.store.IdempotentResponse(ctx, op, key)
	if err != nil {
		return nil, false, fmt.Errorf("idempotency.Get: %w: %w", ErrUnavailable, err)
	}
	return payload, ok, nil
}

// Do returns the recorded response for (op, key) or runs fn. An empty key
// runs fn without a record. When fn loses the commit to another writer of
// the same key, the winner's response is returned.
func (c *Cache) Do(ctx context.Context, op, key string, fn Func) ([]byte, error) {
	if key == "" {
		return fn(ctx, nil)
	}

	if payload, ok, err := c.replay(ctx, op, key); err != nil || ok {
		return payload, err
	}

	v, err, _ := c.group.Do(op+"\x00"+key, func() (any, error) {
		// A call that finished between our lookup and this point has
		// already recorded its response.
		if payload, ok, err := c.replay(ctx, op, key); err != nil || ok {
			return payload, err
		}

		payload, err := fn(ctx, &models.IdempotencyRecord{Op: op, Key: key})
		if errors.Is(err, store.ErrDuplicateRequest) {
			c.logger.Info("key recorded by another writer", zap.String("op", op))
			stored, ok, gerr := c.replay(ctx, op, key)
			if gerr != nil {
				return nil, gerr
			}
			if !ok {
				// purged between the conflict and the lookup
				return nil, err
			}
			return stored, nil
		}
		if err != nil {
			return nil, err
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) replay(ctx context.Context, op, key string) ([]byte, bool, error) {
	payload, ok, err := c.Get(ctx, op, key)
	if err != nil || !ok {
		return nil, false, err
	}
	metrics.IdempotentReplaysTotal.WithLabelValues(op).Inc()
	return payload, true, nil
}

// Purge drops records older than the configured TTL.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	n, err := c.store.PurgeIdempotentBefore(ctx, c.now().Add(-c.ttl))
	if err != nil {
		return 0, fmt.Errorf("idempotency.Purge: %w", err)
	}
	return n, nil
}

// RunJanitor purges expired records every interval until ctx is done.
func (c *Cache) RunJanitor(ctx context.Context, interval time.Duration) {
	if c.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := c.Purge(ctx)
			if err != nil {
				c.logger.Error("purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				c.logger.Info("purged expired records", zap.Int64("count", n))
			}
		}
	}
}
