package httpapi

import (
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// RateLimiter enforces global, per-IP, and per-key token buckets, built on
// golang.org/x/time/rate instead of a hand-rolled refill loop.
type RateLimiter struct {
	mu     sync.Mutex
	global *rate.Limiter
	perIP  map[string]*rate.Limiter
	perKey map[string]*rate.Limiter

	ipLimit  rate.Limit
	ipBurst  int
	keyLimit rate.Limit
	keyBurst int
}

// NewRateLimiter builds a limiter with three per-minute budgets: global,
// per-IP, and per-key requests per minute.
func NewRateLimiter(globalPerMin, perIPPerMin, perKeyPerMin int) *RateLimiter {
	perMin := func(n int) rate.Limit { return rate.Limit(float64(n) / 60.0) }
	return &RateLimiter{
		global:   rate.NewLimiter(perMin(globalPerMin), globalPerMin),
		perIP:    make(map[string]*rate.Limiter),
		perKey:   make(map[string]*rate.Limiter),
		ipLimit:  perMin(perIPPerMin),
		ipBurst:  perIPPerMin,
		keyLimit: perMin(perKeyPerMin),
		keyBurst: perKeyPerMin,
	}
}

// Allow reports whether a request from ip (optionally bearing apiKey) may
// proceed, consuming a token from every bucket it touches.
func (l *RateLimiter) Allow(ip, apiKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.global.Allow() {
		return false
	}

	ipLimiter, ok := l.perIP[ip]
	if !ok {
		ipLimiter = rate.NewLimiter(l.ipLimit, l.ipBurst)
		l.perIP[ip] = ipLimiter
	}
	if !ipLimiter.Allow() {
		return false
	}

	if apiKey != "" {
		keyLimiter, ok := l.perKey[apiKey]
		if !ok {
			keyLimiter = rate.NewLimiter(l.keyLimit, l.keyBurst)
			l.perKey[apiKey] = keyLimiter
		}
		if !keyLimiter.Allow() {
			return false
		}
	}

	return true
}

// rateLimitMiddleware rejects requests over the configured budget with
// 429 Too Many Requests, applied ahead of the API-key check so abusive
// clients are throttled before the credential comparison runs.
func rateLimitMiddleware(limiter *RateLimiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				apiKey = r.URL.Query().Get("api_key")
			}

			if !limiter.Allow(ip, apiKey) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
