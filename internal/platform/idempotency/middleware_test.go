package idempotency

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newCountingHandler(counter *atomic.Int64, status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestMiddlewarePassesThroughWithoutKey(t *testing.T) {
	var calls atomic.Int64
	handler := Middleware(NewMemoryStore())(newCountingHandler(&calls, http.StatusOK, `{"ok":true}`))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"tableNumber":"5"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}

	if calls.Load() != 2 {
		t.Fatalf("handler calls = %d, want 2", calls.Load())
	}
}

func TestMiddlewareReplaysStoredResponse(t *testing.T) {
	var calls atomic.Int64
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	handler := Middleware(NewMemoryStore(), WithClock(func() time.Time { return now }))(
		newCountingHandler(&calls, http.StatusCreated, `{"orderId":42}`))

	request := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"tableNumber":"5"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := request()
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d", first.Code)
	}
	if first.Header().Get(replayHeaderName) != "" {
		t.Fatal("first response must not be marked as replay")
	}

	second := request()
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status = %d", second.Code)
	}
	if second.Header().Get(replayHeaderName) != "true" {
		t.Fatal("expected replay marker header")
	}
	body, _ := io.ReadAll(second.Body)
	if string(body) != `{"orderId":42}` {
		t.Fatalf("replay body = %s", body)
	}

	if calls.Load() != 1 {
		t.Fatalf("handler calls = %d, want 1", calls.Load())
	}
}

func TestMiddlewareRejectsKeyReuseWithDifferentBody(t *testing.T) {
	var calls atomic.Int64
	handler := Middleware(NewMemoryStore())(newCountingHandler(&calls, http.StatusCreated, `{}`))

	first := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"tableNumber":"5"}`))
	first.Header.Set("Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first status = %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"tableNumber":"7"}`))
	second.Header.Set("Idempotency-Key", "key-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusConflict {
		t.Fatalf("conflicting reuse status = %d, want 409", rec.Code)
	}

	if calls.Load() != 1 {
		t.Fatalf("handler calls = %d, want 1", calls.Load())
	}
}

func TestMemoryStoreCleanupExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	if _, err := store.Reserve(ctx, "key-1", "fp", now, time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := store.Reserve(ctx, "key-2", "fp", now, time.Hour); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	removed, err := store.CleanupExpired(ctx, now.Add(10*time.Minute), 100)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	// The surviving key is still pending, so a retry reports in-progress.
	reservation, err := store.Reserve(ctx, "key-2", "fp", now.Add(10*time.Minute), time.Hour)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if reservation.State != ReservationStatePending {
		t.Fatalf("state = %v, want pending", reservation.State)
	}
}
