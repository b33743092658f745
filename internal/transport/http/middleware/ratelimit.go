package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"hradmin/internal/transport/http/api"
	"hradmin/internal/transport/http/shared"
)

// sweepThreshold is the bucket count above which expired buckets are dropped.
const sweepThreshold = 4096

type window struct {
	count int
	reset time.Time
}

// fixedWindow counts hits per key in fixed windows.
type fixedWindow struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	windows map[string]*window
}

func newFixedWindow(limit int, period time.Duration) *fixedWindow {
	return &fixedWindow{limit: limit, period: period, windows: map[string]*window{}}
}

// hit records one request for key and reports whether it is allowed, how many remain
// and when the window resets.
func (fw *fixedWindow) hit(key string, now time.Time) (bool, int, time.Time) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if len(fw.windows) > sweepThreshold {
		for k, win := range fw.windows {
			if now.After(win.reset) {
				delete(fw.windows, k)
			}
		}
	}
	win, ok := fw.windows[key]
	if !ok || now.After(win.reset) {
		win = &window{reset: now.Add(fw.period)}
		fw.windows[key] = win
	}
	win.count++
	return win.count <= fw.limit, max(fw.limit-win.count, 0), win.reset
}

// enforce writes the rate headers and the 429 response; it reports whether to continue.
func (fw *fixedWindow) enforce(w http.ResponseWriter, r *http.Request, key string) bool {
	if fw.limit <= 0 {
		return true
	}
	now := time.Now()
	allowed, remaining, reset := fw.hit(key, now)
	resetIn := max(int(reset.Sub(now).Round(time.Second)/time.Second), 0)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(fw.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetIn))
	if allowed {
		return true
	}

	w.Header().Set("Retry-After", strconv.Itoa(max(resetIn, 1)))
	slog.Warn("rate limit exceeded", "key", key, "method", r.Method, "path", r.URL.Path, "limit", fw.limit)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

// RateLimit throttles every request per signed-in employee, or per client IP before login.
func RateLimit(limit int, period time.Duration) func(http.Handler) http.Handler {
	fw := newFixedWindow(limit, period)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !fw.enforce(w, r, callerKey(r)) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type mutationClass int

const (
	mutationNone mutationClass = iota
	mutationLogin
	mutationWrite
)

// mutationRoutes lists the writes with a tighter budget, keyed by method and path under /api/v1.
var mutationRoutes = map[string]mutationClass{
	"POST /auth/login":       mutationLogin,
	"POST /leave/grants":     mutationWrite,
	"POST /leave/policies":   mutationWrite,
	"POST /year-end/approve": mutationWrite,
	"POST /year-end/reject":  mutationWrite,
	"POST /year-end/remind":  mutationWrite,
	"POST /year-end/lapse":   mutationWrite,
}

func classify(r *http.Request) mutationClass {
	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1"), "/")
	if class, ok := mutationRoutes[r.Method+" "+path]; ok {
		return class
	}
	if r.Method == http.MethodPut && strings.HasPrefix(path, "/employees/") {
		return mutationWrite
	}
	return mutationNone
}

// SensitiveMutationRateLimit gives login a quarter of baseLimit per client IP and the leave
// and directory writes half of it per employee.
func SensitiveMutationRateLimit(baseLimit int, period time.Duration) func(http.Handler) http.Handler {
	logins := newFixedWindow(max(baseLimit/4, 1), period)
	writes := newFixedWindow(max(baseLimit/2, 1), period)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch classify(r) {
			case mutationLogin:
				if !logins.enforce(w, r, "ip:"+shared.ClientIP(r)) {
					return
				}
			case mutationWrite:
				if !writes.enforce(w, r, callerKey(r)) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.EmpID != "" {
		return "emp:" + user.EmpID
	}
	return "ip:" + shared.ClientIP(r)
}
