package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/iota-uz/bookings-admin/pkg/configuration"
	"github.com/iota-uz/bookings-admin/pkg/httpapi"
	"github.com/iota-uz/bookings-admin/pkg/routing"
)

type RateLimitConfig struct {
	RequestsPerPeriod int
	Period            time.Duration
	Store             limiter.Store
	// KeyFunc picks the bucket; the client IP when nil.
	KeyFunc func(r *http.Request) string
	// Skip exempts requests from the limit, e.g. health probes.
	Skip func(r *http.Request) bool
}

func NewMemoryStore() limiter.Store {
	return memory.NewStore()
}

// RateLimit throttles requests per key. A non-positive RequestsPerPeriod
// disables limiting.
func RateLimit(cfg RateLimitConfig) mux.MiddlewareFunc {
	if cfg.RequestsPerPeriod <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	period := cfg.Period
	if period <= 0 {
		period = time.Second
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		conf := configuration.Use()
		keyFunc = func(r *http.Request) string {
			return getRealIP(r, conf)
		}
	}
	instance := limiter.New(store, limiter.Rate{Period: period, Limit: int64(cfg.RequestsPerPeriod)})
	m := stdlib.NewMiddleware(
		instance,
		stdlib.WithKeyGetter(keyFunc),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			_ = httpapi.Fail(w, r, http.StatusTooManyRequests, httpapi.CodeRateLimited, "too many requests")
		}),
	)
	if cfg.Skip == nil {
		return m.Handler
	}
	return func(next http.Handler) http.Handler {
		limited := m.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// SkipClasses exempts every request whose path falls in one of classes.
func SkipClasses(c *routing.Classifier, classes ...routing.RouteClass) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		got := c.ClassifyPath(r.URL.Path)
		for _, class := range classes {
			if got == class {
				return true
			}
		}
		return false
	}
}
