package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/labauth/pkg/slogx"
	"golang.org/x/time/rate"
)

// msgTooManyRequests is the 429 body shown to end users.
const msgTooManyRequests = "Demasiados intentos. Inténtalo de nuevo más tarde."

// RateLimitConfig is a token bucket expressed as requests per window.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Profiles used by the authority router. The app config may replace them with
// ParseRateLimitFromEnv.
var (
	// StrictLimit guards credential checks: login, reset, setup.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit guards authenticated second-factor operations.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit guards cheap reads such as the session check.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}
)

// ParseRateLimitFromEnv overrides def from {prefix}_REQUESTS,
// {prefix}_WINDOW_SEC and {prefix}_BURST. Invalid or non-positive values
// are ignored.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	if n, ok := positiveEnv(prefix + "_REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positiveEnv(prefix + "_WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv(prefix + "_BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ============================================================================
// Key Extractors
// ============================================================================

// KeyExtractor picks the bucket a request is counted against.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor returns the client address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then RemoteAddr.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserIDKeyExtractor returns the session subject, or "" without a session.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, ex := range extractors {
			if k := ex(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, sep)
	}
}

// JSONFieldKeyExtractor reads a top-level string field from a JSON request
// body and lowercases it. The body is restored for the next handler.
func JSONFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			return ""
		}

		var fields map[string]json.RawMessage
		if json.Unmarshal(raw, &fields) != nil {
			return ""
		}
		var v string
		if json.Unmarshal(fields[field], &v) != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
}

// ============================================================================
// Limiter
// ============================================================================

// idleSweepInterval is how often buckets that have refilled are dropped.
const idleSweepInterval = 5 * time.Minute

// Limiter holds one token bucket per key.
type Limiter struct {
	cfg     RateLimitConfig
	limit   rate.Limit
	buckets sync.Map // string -> *rate.Limiter

	mu        sync.Mutex
	lastSweep time.Time
}

// NewLimiter builds a Limiter for cfg.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	return &Limiter{
		cfg:       cfg,
		limit:     rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		lastSweep: time.Now(),
	}
}

// Allow consumes a token for key. When none is left it returns false and the
// time until the next token, never less than one second.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	b := l.bucket(key)
	if b.Allow() {
		return true, 0
	}
	res := b.Reserve()
	wait := res.Delay()
	res.Cancel()
	return false, max(wait, time.Second)
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	if b, ok := l.buckets.Load(key); ok {
		return b.(*rate.Limiter)
	}
	b, _ := l.buckets.LoadOrStore(key, rate.NewLimiter(l.limit, l.cfg.Burst))
	l.sweep()
	return b.(*rate.Limiter)
}

// sweep drops buckets that are full again, since they carry no state.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastSweep) < idleSweepInterval {
		return
	}
	l.lastSweep = time.Now()

	l.buckets.Range(func(k, v any) bool {
		if v.(*rate.Limiter).Tokens() >= float64(l.cfg.Burst) {
			l.buckets.Delete(k)
		}
		return true
	})
}

// ============================================================================
// Middleware
// ============================================================================

// RateLimitMiddleware rejects requests with 429 once the bucket chosen by
// keyFn is empty. Requests without a key pass through.
func RateLimitMiddleware(cfg RateLimitConfig, keyFn KeyExtractor) Middleware {
	lim := NewLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyFn(r)
			if key == "" {
				log.Warn("rate limit: no key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := lim.Allow(key)
			if !ok {
				secs := int(wait.Round(time.Second).Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", cfg.Window.String())

				log.Warn("rate limit exceeded", "key", key, "path", r.URL.Path, "retry_after", secs)
				WriteError(w, http.StatusTooManyRequests, msgTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by client address.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByUser limits by session subject and client address.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", UserIDKeyExtractor, IPKeyExtractor))
}

// RateLimitByIPAndField limits by client address plus a JSON body field, so
// one address guessing passwords for many accounts is counted per account.
func RateLimitByIPAndField(cfg RateLimitConfig, field string) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", IPKeyExtractor, JSONFieldKeyExtractor(field)))
}
