package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/forgo/shepherd/api/internal/model"
)

// formPaths are public form posts that get the tighter anonymous budget
var formPaths = map[string]bool{
	"/v1/connect":       true,
	"/v1/auth/login":    true,
	"/v1/auth/register": true,
	"/v1/auth/refresh":  true,
}

// RateLimitConfig holds rate limiter configuration
type RateLimitConfig struct {
	Rate     int           // API requests per window (default 100)
	Burst    int           // Extra API requests allowed on top of Rate (default 20)
	FormRate int           // Public form posts per window per address (default 10)
	Window   time.Duration // Refill window (default 1 minute)
	Cleanup  time.Duration // Idle allowance sweep interval (default 5 minutes)
	Now      func() time.Time
}

// policy is a bucket size and the window it refills over
type policy struct {
	limit    int
	capacity float64
	window   time.Duration
}

// allowance is one client's remaining tokens under a policy
type allowance struct {
	tokens  float64
	updated time.Time
}

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// RateLimiter refills each client's tokens continuously across the window.
// API traffic is keyed per member or address; public form posts (connect
// cards, sign-in, registration) draw from a separate, smaller bucket per address.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*allowance
	api     policy
	forms   policy
	cleanup time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter and starts its idle sweep
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 100
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	if cfg.FormRate <= 0 {
		cfg.FormRate = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Cleanup <= 0 {
		cfg.Cleanup = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	rl := &RateLimiter{
		clients: make(map[string]*allowance),
		api:     policy{limit: cfg.Rate, capacity: float64(cfg.Rate + cfg.Burst), window: cfg.Window},
		forms:   policy{limit: cfg.FormRate, capacity: float64(cfg.FormRate), window: cfg.Window},
		cleanup: cfg.Cleanup,
		now:     cfg.Now,
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the idle sweep. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep forgets clients idle long enough to have refilled completely
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rl.api.window)
	for key, a := range rl.clients {
		if a.updated.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// AllowAPI spends one API token for key
func (rl *RateLimiter) AllowAPI(key string) Decision {
	return rl.take("api:"+key, rl.api)
}

// AllowForm spends one public form token for an address
func (rl *RateLimiter) AllowForm(addr string) Decision {
	return rl.take("form:"+addr, rl.forms)
}

func (rl *RateLimiter) take(key string, p policy) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	perSecond := float64(p.limit) / p.window.Seconds()

	a, ok := rl.clients[key]
	if !ok {
		a = &allowance{tokens: p.capacity, updated: now}
		rl.clients[key] = a
	} else if elapsed := now.Sub(a.updated).Seconds(); elapsed > 0 {
		a.tokens = math.Min(p.capacity, a.tokens+elapsed*perSecond)
		a.updated = now
	}

	d := Decision{Limit: p.limit}
	if a.tokens >= 1 {
		a.tokens--
		d.Allowed = true
	}
	d.Remaining = int(a.tokens)

	// Time until the bucket would be full again
	missing := p.capacity - a.tokens
	d.Reset = now.Add(time.Duration(missing / perSecond * float64(time.Second)))
	if !d.Allowed {
		wait := (1 - a.tokens) / perSecond
		d.Reset = now.Add(time.Duration(wait * float64(time.Second)))
	}
	return d
}

// RateLimit applies the limiter. Anonymous form posts use the form budget;
// everything else is keyed by member id when known, otherwise by address.
func RateLimit(limiter *RateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var d Decision
			if r.Method == http.MethodPost && formPaths[r.URL.Path] {
				d = limiter.AllowForm(ClientIP(r))
			} else {
				key := GetUserID(r.Context())
				if key == "" {
					key = "ip:" + ClientIP(r)
				}
				d = limiter.AllowAPI(key)
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

			if !d.Allowed {
				retryAfter := int(math.Ceil(d.Reset.Sub(limiter.now()).Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				model.NewRateLimitError(retryAfter).WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
