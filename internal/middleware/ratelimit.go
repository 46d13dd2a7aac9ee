package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/zhouzirui/vibecheck/backend/pkg/utils"
)

// SendLimiter throttles message sends per device.
type SendLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
	burst    int
}

// NewSendLimiter allows perMin sends per minute with the given burst.
// perMin <= 0 disables limiting.
func NewSendLimiter(perMin, burst int) *SendLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &SendLimiter{limiters: make(map[string]*rate.Limiter), perMin: perMin, burst: burst}
}

func (l *SendLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(float64(l.perMin)/60), l.burst)
	l.limiters[key] = lim
	return lim
}

// Allow reports whether key may send now.
func (l *SendLimiter) Allow(key string) bool {
	if l == nil || l.perMin <= 0 {
		return true
	}
	return l.get(key).Allow()
}

// Middleware rejects over-limit requests with 429, keyed by device id.
func (l *SendLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(DeviceID(r.Context())) {
			utils.RespondError(w, http.StatusTooManyRequests, "slow down, anon")
			return
		}
		next.ServeHTTP(w, r)
	})
}
