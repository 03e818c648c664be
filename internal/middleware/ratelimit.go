package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"zylorb/internal/metrics"
	"zylorb/internal/ratelimit"
)

const rateLimitedMessage = "Too many requests, please try again later."

type windowLimiter interface {
	Allow(key string) ratelimit.Decision
}

// RateLimitMiddleware applies the fixed-window limit to every request and an
// additional token bucket to the credential endpoints.
type RateLimitMiddleware struct {
	window     windowLimiter
	trustProxy bool
	metrics    *metrics.Metrics
	now        func() time.Time

	authRPM   int
	authPaths map[string]struct{}
	mu        sync.Mutex
	clients   map[string]*clientLimiter
}

type clientLimiter struct {
	auth     *rate.Limiter
	lastSeen time.Time
}

type RateLimitOptions struct {
	TrustProxy bool
	// AuthRPM is the credential endpoint budget per client per minute. Zero
	// or less disables the throttle.
	AuthRPM   int
	AuthPaths []string
	Metrics   *metrics.Metrics
}

func NewRateLimitMiddleware(window windowLimiter, opts RateLimitOptions) *RateLimitMiddleware {
	paths := map[string]struct{}{}
	for _, p := range opts.AuthPaths {
		paths[strings.ToLower(p)] = struct{}{}
	}

	return &RateLimitMiddleware{
		window:     window,
		trustProxy: opts.TrustProxy,
		metrics:    opts.Metrics,
		now:        time.Now,
		authRPM:    opts.AuthRPM,
		authPaths:  paths,
		clients:    map[string]*clientLimiter{},
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r, m.trustProxy)

		if m.window != nil {
			decision := m.window.Allow(clientIP)
			setRateLimitHeaders(w, decision)
			if !decision.Allowed {
				m.metrics.Limited("window")
				retryAfter := decision.RetryAfter(m.now())
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))
				writeErrorBody(w, http.StatusTooManyRequests, "RATE_LIMITED", rateLimitedMessage)
				return
			}
		}

		if m.isAuthPath(r.URL.Path) && !m.allowAuth(clientIP) {
			m.metrics.Limited("credentials")
			w.Header().Set("Retry-After", "60")
			writeErrorBody(w, http.StatusTooManyRequests, "RATE_LIMITED", rateLimitedMessage)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

func (m *RateLimitMiddleware) isAuthPath(path string) bool {
	if m.authRPM <= 0 {
		return false
	}
	_, ok := m.authPaths[strings.ToLower(strings.TrimSuffix(path, "/"))]
	return ok
}

func (m *RateLimitMiddleware) allowAuth(clientIP string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	limiter, exists := m.clients[clientIP]
	if !exists {
		limiter = &clientLimiter{
			auth: rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.authRPM)), m.authRPM),
		}
		m.clients[clientIP] = limiter
	}
	limiter.lastSeen = now
	m.gcLocked(now)

	return limiter.auth.AllowN(now, 1)
}

func (m *RateLimitMiddleware) gcLocked(now time.Time) {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := now.Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

// extractClientIP keys requests by peer address. Forwarding headers are only
// honoured behind a trusted proxy, otherwise any client could pick its key.
func extractClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
		if forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}

		realIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
		if realIP != "" {
			return realIP
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}

	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}

	return r.RemoteAddr
}
