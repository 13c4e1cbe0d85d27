package idempotency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"trade_engine/internal/models"
	"trade_engine/internal/store"
	"trade_engine/internal/store/memory"
)

// commitWith returns a Func that records payload through st like a tick does.
func commitWith(st *memory.Store, payload []byte, calls *atomic.Int32) Func {
	return func(ctx context.Context, rec *models.IdempotencyRecord) ([]byte, error) {
		if calls != nil {
			calls.Add(1)
		}
		if rec == nil {
			return payload, nil
		}
		rec.Payload = payload
		if err := st.Commit(ctx, &models.Mutation{Idempotency: rec}); err != nil {
			return nil, err
		}
		return payload, nil
	}
}

func TestDoRunsOncePerKey(t *testing.T) {
	st := memory.New()
	c := NewCache(st, Config{}, zaptest.NewLogger(t))
	var calls atomic.Int32

	first, err := c.Do(context.Background(), "/engine/tick", "k1", commitWith(st, []byte("1"), &calls))
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := c.Do(context.Background(), "/engine/tick", "k1", commitWith(st, []byte("2"), &calls))
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("replay differs: %q vs %q", first, second)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one execution, got %d", calls.Load())
	}
}

func TestDoConcurrentSameKey(t *testing.T) {
	st := memory.New()
	c := NewCache(st, Config{}, zaptest.NewLogger(t))
	var calls atomic.Int32
	release := make(chan struct{})

	inner := commitWith(st, []byte("done"), &calls)
	fn := func(ctx context.Context, rec *models.IdempotencyRecord) ([]byte, error) {
		<-release
		return inner(ctx, rec)
	}

	var g errgroup.Group
	results := make([][]byte, 16)
	for i := range results {
		g.Go(func() error {
			out, err := c.Do(context.Background(), "op", "same", fn)
			results[i] = out
			return err
		})
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls.Load() != 1 {
		t.Fatalf("expected a single execution, got %d", calls.Load())
	}
	for i, r := range results {
		if string(r) != "done" {
			t.Fatalf("caller %d got %q", i, r)
		}
	}
}

func TestFailuresAreNotRecorded(t *testing.T) {
	st := memory.New()
	c := NewCache(st, Config{}, zaptest.NewLogger(t))
	boom := errors.New("store unavailable")

	_, err := c.Do(context.Background(), "op", "k", func(context.Context, *models.IdempotencyRecord) ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected failure, got %v", err)
	}
	if _, ok, _ := c.Get(context.Background(), "op", "k"); ok {
		t.Fatalf("failed call must not be recorded")
	}

	out, err := c.Do(context.Background(), "op", "k", commitWith(st, []byte("ok"), nil))
	if err != nil || string(out) != "ok" {
		t.Fatalf("retry expected ok, got %q err=%v", out, err)
	}
}

func TestEmptyKeyIsNotRecorded(t *testing.T) {
	c := NewCache(memory.New(), Config{}, zaptest.NewLogger(t))
	var calls int
	fn := func(_ context.Context, rec *models.IdempotencyRecord) ([]byte, error) {
		if rec != nil {
			t.Fatalf("empty key must not ask for a record")
		}
		calls++
		return []byte("x"), nil
	}

	_, _ = c.Do(context.Background(), "op", "", fn)
	_, _ = c.Do(context.Background(), "op", "", fn)
	if calls != 2 {
		t.Fatalf("expected two executions without a key, got %d", calls)
	}
}

func TestLostCommitReturnsRecordedResponse(t *testing.T) {
	st := memory.New()
	c := NewCache(st, Config{}, zaptest.NewLogger(t))
	ctx := context.Background()

	// another writer records the key after our lookup but before our commit
	fn := func(ctx context.Context, rec *models.IdempotencyRecord) ([]byte, error) {
		other := &models.IdempotencyRecord{Op: rec.Op, Key: rec.Key, Payload: []byte("first")}
		if err := st.Commit(ctx, &models.Mutation{Idempotency: other}); err != nil {
			return nil, err
		}
		return commitWith(st, []byte("second"), nil)(ctx, rec)
	}
	out, err := c.Do(ctx, "op", "k", fn)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if string(out) != "first" {
		t.Fatalf("expected the first writer's response, got %q", out)
	}
}

type failingLookup struct {
	*memory.Store
}

func (failingLookup) IdempotentResponse(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection reset")
}

func TestLookupFailureIsUnavailable(t *testing.T) {
	c := NewCache(failingLookup{memory.New()}, Config{}, zaptest.NewLogger(t))
	var calls atomic.Int32

	_, err := c.Do(context.Background(), "op", "k", func(context.Context, *models.IdempotencyRecord) ([]byte, error) {
		calls.Add(1)
		return []byte("x"), nil
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("fn must not run when the lookup fails")
	}
}

func TestPurgeHonoursTTL(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := memory.New().WithClock(func() time.Time { return at })
	c := NewCache(st, Config{TTL: time.Hour}, zaptest.NewLogger(t))
	c.now = func() time.Time { return at.Add(2 * time.Hour) }

	if _, err := c.Do(ctx, "op", "k", commitWith(st, []byte("v"), nil)); err != nil {
		t.Fatalf("do: %v", err)
	}
	n, err := c.Purge(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one purged record, got %d err=%v", n, err)
	}

	unbounded := NewCache(st, Config{}, zaptest.NewLogger(t))
	if n, _ := unbounded.Purge(ctx); n != 0 {
		t.Fatalf("zero TTL must keep records")
	}
}

var _ store.IdempotencyStore = failingLookup{}
