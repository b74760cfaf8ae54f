package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestMemoryDeduperDropsReplays(t *testing.T) {
	d := newMemoryOutcomeDeduper(time.Minute)
	ctx := context.Background()

	seen, err := d.Seen(ctx, "key-1")
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Error("first delivery flagged as duplicate")
	}

	seen, err = d.Seen(ctx, "key-1")
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if !seen {
		t.Error("replay not flagged as duplicate")
	}

	seen, _ = d.Seen(ctx, "key-2")
	if seen {
		t.Error("distinct key flagged as duplicate")
	}
}

func TestMemoryDeduperExpiresKeys(t *testing.T) {
	d := newMemoryOutcomeDeduper(10 * time.Millisecond)
	ctx := context.Background()

	if seen, _ := d.Seen(ctx, "key-1"); seen {
		t.Fatal("first delivery flagged as duplicate")
	}
	time.Sleep(20 * time.Millisecond)
	if seen, _ := d.Seen(ctx, "key-1"); seen {
		t.Error("expired key still flagged as duplicate")
	}
}

func TestMemoryDeduperForgetReleasesKey(t *testing.T) {
	d := newMemoryOutcomeDeduper(time.Minute)
	ctx := context.Background()

	if seen, _ := d.Seen(ctx, "key-1"); seen {
		t.Fatal("first delivery flagged as duplicate")
	}
	if err := d.Forget(ctx, "key-1"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if seen, _ := d.Seen(ctx, "key-1"); seen {
		t.Error("released key still flagged as duplicate")
	}
}

// deliverOutcome pushes one keyed request through the wrapped handler.
func deliverOutcome(t *testing.T, e *echo.Echo, h echo.HandlerFunc, key string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/1/outcome", nil)
	req.Header.Set("Idempotency-Key", key)
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

func TestOutcomeDedupDropsReplayAfterSuccess(t *testing.T) {
	e := echo.New()
	d := newMemoryOutcomeDeduper(time.Minute)

	calls := 0
	h := OutcomeDedup(d)(func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, map[string]interface{}{"status": true, "msg": "Outcome recorded"})
	})

	if rec := deliverOutcome(t, e, h, "key-1"); rec.Code != http.StatusOK {
		t.Fatalf("first delivery code = %d, want 200", rec.Code)
	}
	if rec := deliverOutcome(t, e, h, "key-1"); rec.Code != http.StatusOK {
		t.Fatalf("replay code = %d, want 200", rec.Code)
	}
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1 (replay must not reach the handler)", calls)
	}
}

func TestOutcomeDedupAllowsRetryAfterServerError(t *testing.T) {
	e := echo.New()
	d := newMemoryOutcomeDeduper(time.Minute)

	calls := 0
	healthy := false
	h := OutcomeDedup(d)(func(c echo.Context) error {
		calls++
		if !healthy {
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{"status": false, "msg": "storage down"})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"status": true, "msg": "Outcome recorded"})
	})

	if rec := deliverOutcome(t, e, h, "key-1"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("first delivery code = %d, want 500", rec.Code)
	}

	// Storage recovers; the worker retries under the same key.
	healthy = true
	if rec := deliverOutcome(t, e, h, "key-1"); rec.Code != http.StatusOK {
		t.Fatalf("retry code = %d, want 200", rec.Code)
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2 (retry after 500 must reach the handler)", calls)
	}

	// Once applied, further replays are dropped again.
	if rec := deliverOutcome(t, e, h, "key-1"); rec.Code != http.StatusOK {
		t.Fatalf("replay code = %d, want 200", rec.Code)
	}
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2 (replay after success must be dropped)", calls)
	}
}

func TestNewOutcomeDeduperFallsBackWithoutRedis(t *testing.T) {
	d, err := NewOutcomeDeduper("", "", 0, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := d.(*memoryOutcomeDeduper); !ok {
		t.Errorf("expected in-memory deduper without redis addr, got %T", d)
	}
}
