package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// limiterTTL bounds how long per-client limiters are retained.
const limiterTTL = time.Hour

// clientLimiter hands out one token bucket per client IP.
type clientLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
}

// get returns the limiter for ip. The whole table is dropped once per
// limiterTTL so idle clients do not accumulate.
func (l *clientLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.lastCleanup.IsZero() {
		l.lastCleanup = now
	}
	if now.Sub(l.lastCleanup) > limiterTTL {
		l.limiters = make(map[string]*rate.Limiter)
		l.lastCleanup = now
	}

	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

// middleware rejects requests over the per-client rate with 429.
func (l *clientLimiter) middleware(logger func(c echo.Context, ip string)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if !l.get(ip).AllowN(l.now(), 1) {
				logger(c, ip)
				return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
			}
			return next(c)
		}
	}
}

func (s *Server) logRateLimited(c echo.Context, ip string) {
	s.logger.Warn(c.Request().Context(), "rate limit exceeded",
		zap.String("path", c.Path()),
		zap.String("client_ip", ip),
	)
}
