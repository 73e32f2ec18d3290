package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"paie/internal/transport/http/api"
)

// loginPeekBytes bounds how much of a login body is read to find the email.
const loginPeekBytes = 16 << 10

type keyFunc func(r *http.Request) string

// window counts hits per key over fixed windows. Expired keys are swept
// every window so idle clients do not accumulate.
type window struct {
	mu        sync.Mutex
	limit     int
	length    time.Duration
	key       keyFunc
	hits      map[string]*windowHits
	nextSweep time.Time
}

type windowHits struct {
	count int
	ends  time.Time
}

func newWindow(limit int, length time.Duration, key keyFunc) *window {
	return &window{limit: limit, length: length, key: key, hits: map[string]*windowHits{}}
}

// take records one hit for key and reports whether it stays within the limit,
// the hits left and the time until the window closes.
func (w *window) take(key string, now time.Time) (bool, int, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if now.After(w.nextSweep) {
		for k, h := range w.hits {
			if now.After(h.ends) {
				delete(w.hits, k)
			}
		}
		w.nextSweep = now.Add(w.length)
	}

	h, ok := w.hits[key]
	if !ok || now.After(h.ends) {
		h = &windowHits{ends: now.Add(w.length)}
		w.hits[key] = h
	}
	h.count++
	return h.count <= w.limit, max(w.limit-h.count, 0), h.ends.Sub(now)
}

// allow writes the rate limit headers and the 429 envelope when the request
// is over the limit.
func (w *window) allow(rw http.ResponseWriter, r *http.Request) bool {
	if w.limit <= 0 {
		return true
	}
	key := w.key(r)
	if key == "" {
		key = "ip:" + clientIP(r)
	}
	ok, remaining, resetIn := w.take(key, time.Now())
	reset := ceilSeconds(resetIn)

	h := rw.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(w.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(reset))
	if ok {
		return true
	}

	h.Set("Retry-After", strconv.Itoa(max(reset, 1)))
	slog.WarnContext(r.Context(), "rate limit exceeded", "key", key, "method", r.Method, "path", r.URL.Path, "limit", w.limit)
	api.Fail(rw, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// RateLimit throttles every request per signed-in user, or per client IP for
// anonymous calls.
func RateLimit(limit int, length time.Duration) func(http.Handler) http.Handler {
	w := newWindow(limit, length, userOrIPKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if w.allow(rw, r) {
				next.ServeHTTP(rw, r)
			}
		})
	}
}

// SensitiveMutationRateLimit applies tighter limits to logins and to
// mutations that touch many records at once. Logins are limited both per IP
// and per submitted email.
func SensitiveMutationRateLimit(baseLimit int, length time.Duration) func(http.Handler) http.Handler {
	loginLimit := max(baseLimit/4, 1)
	loginByIP := newWindow(loginLimit, length, func(r *http.Request) string { return "ip:" + clientIP(r) })
	loginByEmail := newWindow(loginLimit, length, loginEmailKey)
	bulkByUser := newWindow(max(baseLimit/2, 1), length, userOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				if !loginByIP.allow(rw, r) || !loginByEmail.allow(rw, r) {
					return
				}
			case sensitiveScopeActor:
				if !bulkByUser.allow(rw, r) {
					return
				}
			}
			next.ServeHTTP(rw, r)
		})
	}
}

func userOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return "ip:" + clientIP(r)
}

// loginEmailKey reads the email of a JSON login body and restores the body
// for the handler.
func loginEmailKey(r *http.Request) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, loginPeekBytes))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ""
	}
	return "email:" + email
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

type sensitiveScope string

const (
	sensitiveScopeNone  sensitiveScope = ""
	sensitiveScopeAuth  sensitiveScope = "auth"
	sensitiveScopeActor sensitiveScope = "actor"
)

// sensitiveRoutes are matched with path.Match against the path below /api/v1.
var sensitiveRoutes = []struct {
	pattern string
	scope   sensitiveScope
}{
	{"/auth/login", sensitiveScopeAuth},
	{"/users", sensitiveScopeActor},
	{"/users/*/deactivate", sensitiveScopeActor},
	{"/employees/import", sensitiveScopeActor},
	{"/payroll/periods/*/run", sensitiveScopeActor},
	{"/settings/company", sensitiveScopeActor},
}

func sensitiveRateScope(r *http.Request) sensitiveScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}
	p := strings.TrimPrefix(r.URL.Path, "/api/v1")
	for _, route := range sensitiveRoutes {
		if ok, _ := path.Match(route.pattern, p); ok {
			return route.scope
		}
	}
	return sensitiveScopeNone
}
