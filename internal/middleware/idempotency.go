package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/forgo/shepherd/api/internal/model"
)

// IdempotencyHeader is the request header clients use to make retries safe,
// e.g. a donation checkout resubmitted after a dropped connection
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 255

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL     time.Duration // How long a finished response is replayed (default 24h)
	Cleanup time.Duration // Expired entry sweep interval (default 1h)
	Now     func() time.Time
}

// IdempotencyStore remembers responses per caller and Idempotency-Key
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*idempotencyEntry
	ttl     time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type idempotencyEntry struct {
	fingerprint string // method, path and body the key was first used with
	status      int
	headers     http.Header
	body        []byte
	expiresAt   time.Time
	done        chan struct{} // closed once the response is recorded
}

func (e *idempotencyEntry) finished() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// NewIdempotencyStore creates a store and starts its sweep
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Cleanup <= 0 {
		cfg.Cleanup = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &IdempotencyStore{
		entries: make(map[string]*idempotencyEntry),
		ttl:     cfg.TTL,
		now:     cfg.Now,
		stop:    make(chan struct{}),
	}
	go s.sweepLoop(cfg.Cleanup)
	return s
}

// Stop ends the sweep. Safe to call more than once.
func (s *IdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *IdempotencyStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *IdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if e.finished() && e.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}
}

// fingerprint identifies the request a key was issued for
func fingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type claimResult int

const (
	claimNew claimResult = iota
	claimReplay
	claimMismatch
)

// claim registers key for this request, waiting out a concurrent attempt.
// A finished entry is replayed only when the request matches the original.
func (s *IdempotencyStore) claim(key, fp string) (*idempotencyEntry, claimResult) {
	for {
		s.mu.Lock()
		e, ok := s.entries[key]
		if ok && !e.finished() {
			s.mu.Unlock()
			<-e.done
			continue
		}
		if ok && e.expiresAt.After(s.now()) {
			s.mu.Unlock()
			if e.fingerprint != fp {
				return e, claimMismatch
			}
			return e, claimReplay
		}

		e = &idempotencyEntry{fingerprint: fp, done: make(chan struct{})}
		s.entries[key] = e
		s.mu.Unlock()
		return e, claimNew
	}
}

// record stores the outcome. Server errors are forgotten so a retry runs again.
func (s *IdempotencyStore) record(key string, e *idempotencyEntry, rec *recordingWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.status >= http.StatusInternalServerError {
		delete(s.entries, key)
	} else {
		e.status = rec.status
		e.headers = rec.Header().Clone()
		e.body = rec.body.Bytes()
		e.expiresAt = s.now().Add(s.ttl)
	}
	close(e.done)
}

// recordingWriter tees the response so it can be replayed
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency makes POST and PATCH requests carrying an Idempotency-Key safe
// to retry. Keys are scoped to the member (or client address). Reusing a key
// for a different request is rejected with 422.
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}
			idemKey := r.Header.Get(IdempotencyHeader)
			if idemKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(idemKey) > maxIdempotencyKeyLen {
				model.NewBadRequestError("Idempotency-Key must be 255 characters or less").WriteJSON(w)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				model.NewBadRequestError("could not read request body").WriteJSON(w)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			caller := GetUserID(r.Context())
			if caller == "" {
				caller = "ip:" + ClientIP(r)
			}
			key := caller + "\x00" + idemKey

			entry, result := store.claim(key, fingerprint(r.Method, r.URL.Path, body))
			switch result {
			case claimReplay:
				replay(w, entry)
				return
			case claimMismatch:
				model.NewValidationError([]model.FieldError{{
					Field:   IdempotencyHeader,
					Message: "Idempotency-Key was already used for a different request",
				}}).WriteJSON(w)
				return
			}

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				if p := recover(); p != nil {
					rec.status = http.StatusInternalServerError
					store.record(key, entry, rec)
					panic(p)
				}
				store.record(key, entry, rec)
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

func replay(w http.ResponseWriter, e *idempotencyEntry) {
	for k, vals := range e.headers {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(e.status)
	_, _ = w.Write(e.body)
}
