package handler

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pavelanni/skillmeter/internal/handler/views"
)

const attemptWindow = time.Minute

// visitor pairs a client's limiter with its last request time.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// attemptLimiter throttles login and register attempts per client address.
// Idle entries are dropped lazily on the next call.
type attemptLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	expiry   time.Duration
	now      func() time.Time
}

// newAttemptLimiter allows max attempts per minute. It returns nil when
// max is not positive.
func newAttemptLimiter(max int, now func() time.Time) *attemptLimiter {
	if max <= 0 {
		return nil
	}
	return &attemptLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(attemptWindow / time.Duration(max)),
		burst:    max,
		expiry:   3 * attemptWindow,
		now:      now,
	}
}

func (l *attemptLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.expiry {
			delete(l.visitors, k)
		}
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limitAttempts rejects credential posts from clients over the limit.
func (h *Handler) limitAttempts(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.allow(clientKey(r)) {
			slog.Warn("too many credential attempts", "client", clientKey(r), "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			h.renderStatus(w, r, http.StatusTooManyRequests,
				views.LoginPage(views.AuthData{Page: views.Page{Flash: views.ErrorFlash("ErrTooManyRequests")}}))
			return
		}
		next.ServeHTTP(w, r)
	})
}
