package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forgo/shepherd/api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkoutHandler counts calls and answers like a donation checkout
type checkoutHandler struct {
	calls  atomic.Int32
	status int
	gate   chan struct{} // when set, blocks until closed
}

func (h *checkoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := h.calls.Add(1)
	if h.gate != nil {
		<-h.gate
	}
	body, _ := io.ReadAll(r.Body)
	status := h.status
	if status == 0 {
		status = http.StatusCreated
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/v1/me/donations")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"attempt": n, "echo": string(body)})
}

func newTestStore(t *testing.T, ttl time.Duration) (*IdempotencyStore, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	s := NewIdempotencyStore(IdempotencyConfig{TTL: ttl, Now: clock.Now})
	t.Cleanup(s.Stop)
	return s, clock
}

func checkoutRequest(member, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/donations/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	if member != "" {
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, member))
	}
	return req
}

func serveIdem(store *IdempotencyStore, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	Idempotency(store)(h).ServeHTTP(rr, req)
	return rr
}

const giftBody = `{"amount_cents":5000,"fund":"general","frequency":"one_time"}`

// ============================================================================
// Pass-through
// ============================================================================

func TestIdempotency_PassThrough(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		method string
		key    string
	}{
		{"GET is never cached", http.MethodGet, "k1"},
		{"PUT is never cached", http.MethodPut, "k1"},
		{"DELETE is never cached", http.MethodDelete, "k1"},
		{"POST without a key", http.MethodPost, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store, _ := newTestStore(t, time.Hour)
			h := &checkoutHandler{}

			for i := 0; i < 2; i++ {
				req := httptest.NewRequest(tc.method, "/v1/events/event:1/rsvp", strings.NewReader(`{}`))
				if tc.key != "" {
					req.Header.Set(IdempotencyHeader, tc.key)
				}
				rr := serveIdem(store, h, req)
				assert.Empty(t, rr.Header().Get("X-Idempotency-Replayed"))
			}
			assert.Equal(t, int32(2), h.calls.Load())
		})
	}
}

// ============================================================================
// Replay
// ============================================================================

func TestIdempotency_RetriedCheckout_Replayed(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, time.Hour)
	h := &checkoutHandler{}

	first := serveIdem(store, h, checkoutRequest("user:lydia", "gift-1", giftBody))
	second := serveIdem(store, h, checkoutRequest("user:lydia", "gift-1", giftBody))

	assert.Equal(t, int32(1), h.calls.Load(), "the gift must only be created once")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replayed"))
	assert.Equal(t, "/v1/me/donations", second.Header().Get("Location"))
	assert.Empty(t, first.Header().Get("X-Idempotency-Replayed"))
}

func TestIdempotency_HandlerSeesFullBody(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, time.Hour)
	rr := serveIdem(store, &checkoutHandler{}, checkoutRequest("user:lydia", "gift-2", giftBody))

	var got map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, giftBody, got["echo"])
}

func TestIdempotency_KeysAreScopedPerCaller(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, time.Hour)
	h := &checkoutHandler{}

	serveIdem(store, h, checkoutRequest("user:lydia", "same-key", giftBody))
	rr := serveIdem(store, h, checkoutRequest("user:priscilla", "same-key", giftBody))

	assert.Equal(t, int32(2), h.calls.Load())
	assert.Empty(t, rr.Header().Get("X-Idempotency-Replayed"))
}

func TestIdempotency_AnonymousCallersKeyedByAddress(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, time.Hour)
	h := &checkoutHandler{}

	card := func(addr string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/v1/connect", strings.NewReader(`{"name":"Visitor"}`))
		req.Header.Set(IdempotencyHeader, "card-1")
		req.RemoteAddr = addr
		return req
	}

	serveIdem(store, h, card("203.0.113.1:1000"))
	serveIdem(store, h, card("203.0.113.1:2000"))
	serveIdem(store, h, card("203.0.113.2:1000"))

	assert.Equal(t, int32(2), h.calls.Load(), "port changes do not split one visitor")
}

func TestIdempotency_KeyReusedForDifferentRequest_Returns422(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, time.Hour)
	h := &checkoutHandler{}

	serveIdem(store, h, checkoutRequest("user:lydia", "gift-3", giftBody))
	rr := serveIdem(store, h, checkoutRequest("user:lydia", "gift-3",
		`{"amount_cents":9000,"fund":"missions","frequency":"one_time"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, int32(1), h.calls.Load())

	var problem model.ProblemDetails
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&problem))
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, IdempotencyHeader, problem.Errors[0].Field)
}

func TestIdempotency_OverlongKey_Returns400(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, time.Hour)
	h := &checkoutHandler{}

	rr := serveIdem(store, h, checkoutRequest("user:lydia", strings.Repeat("k", 256), giftBody))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, int32(0), h.calls.Load())
}

// ============================================================================
// Failures and Expiry
// ============================================================================

func TestIdempotency_ServerErrorNotRemembered(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, time.Hour)
	h := &checkoutHandler{status: http.StatusBadGateway}

	serveIdem(store, h, checkoutRequest("user:lydia", "gift-4", giftBody))
	h.status = http.StatusCreated
	rr := serveIdem(store, h, checkoutRequest("user:lydia", "gift-4", giftBody))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, int32(2), h.calls.Load())
}

func TestIdempotency_ClientErrorIsRemembered(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, time.Hour)
	h := &checkoutHandler{status: http.StatusUnprocessableEntity}

	serveIdem(store, h, checkoutRequest("user:lydia", "gift-5", giftBody))
	rr := serveIdem(store, h, checkoutRequest("user:lydia", "gift-5", giftBody))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, int32(1), h.calls.Load())
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, time.Hour)
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("stripe client nil") })

	assert.Panics(t, func() {
		serveIdem(store, boom, checkoutRequest("user:lydia", "gift-6", giftBody))
	})

	h := &checkoutHandler{}
	rr := serveIdem(store, h, checkoutRequest("user:lydia", "gift-6", giftBody))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, int32(1), h.calls.Load())
}

func TestIdempotency_ExpiredEntryRunsAgain(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, time.Hour)
	h := &checkoutHandler{}

	serveIdem(store, h, checkoutRequest("user:lydia", "gift-7", giftBody))
	clock.Advance(61 * time.Minute)
	serveIdem(store, h, checkoutRequest("user:lydia", "gift-7", giftBody))

	assert.Equal(t, int32(2), h.calls.Load())
}

func TestIdempotencyStore_SweepDropsExpired(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, time.Hour)
	h := &checkoutHandler{}

	serveIdem(store, h, checkoutRequest("user:lydia", "old", giftBody))
	clock.Advance(30 * time.Minute)
	serveIdem(store, h, checkoutRequest("user:lydia", "fresh", giftBody))
	clock.Advance(45 * time.Minute)

	store.sweep()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotContains(t, store.entries, "user:lydia\x00old")
	assert.Contains(t, store.entries, "user:lydia\x00fresh")
}

// ============================================================================
// Concurrency
// ============================================================================

func TestIdempotency_ConcurrentRetryWaitsForFirst(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, time.Hour)
	h := &checkoutHandler{gate: make(chan struct{})}

	var wg sync.WaitGroup
	results := make([]*httptest.ResponseRecorder, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = serveIdem(store, h, checkoutRequest("user:lydia", "double-click", giftBody))
		}(i)
	}

	require.Eventually(t, func() bool { return h.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(h.gate)
	wg.Wait()

	assert.Equal(t, int32(1), h.calls.Load())
	replayed := 0
	for _, rr := range results {
		assert.Equal(t, http.StatusCreated, rr.Code)
		if rr.Header().Get("X-Idempotency-Replayed") == "true" {
			replayed++
		}
	}
	assert.Equal(t, 2, replayed)
}

func TestIdempotencyStore_StopTwice(t *testing.T) {
	t.Parallel()

	s := NewIdempotencyStore(IdempotencyConfig{})
	assert.NotPanics(t, func() {
		s.Stop()
		s.Stop()
	})
}
