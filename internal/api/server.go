package api

import (
	"net/http"
	"time"

	"github.com/kuitang/notebook/internal/kv"
	"github.com/kuitang/notebook/internal/metrics"
	"github.com/kuitang/notebook/internal/obs"
	"github.com/kuitang/notebook/internal/ratelimit"
)

// RouterConfig wires the handler's collaborators. Metrics and Limiter are
// optional.
type RouterConfig struct {
	Store        kv.Store
	MaxBodyBytes int64
	Metrics      *metrics.Metrics
	Limiter      *ratelimit.RateLimiter
	TrustProxy   bool
}

// NewRouter builds the full HTTP surface: slot routes (rate limited and
// measured), /healthz and /metrics, behind request correlation and access
// logging.
func NewRouter(cfg RouterConfig) http.Handler {
	var observer Observer
	if cfg.Metrics != nil {
		observer = cfg.Metrics
	}
	h := NewHandler(cfg.Store, cfg.MaxBodyBytes, observer)

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.Limiter != nil {
		var onLimited func(*http.Request)
		if cfg.Metrics != nil {
			onLimited = func(*http.Request) { cfg.Metrics.IncRateLimited() }
		}
		limit = ratelimit.RateLimitMiddleware(cfg.Limiter, func(r *http.Request) string {
			return ratelimit.ClientIP(r, cfg.TrustProxy)
		}, onLimited)
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux, func(pattern string, next http.Handler) http.Handler {
		next = limit(next)
		if cfg.Metrics != nil {
			next = cfg.Metrics.Middleware(pattern, next)
		}
		return next
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	return obs.RequestContextMiddleware(obs.AccessLogMiddleware("api", mux))
}

// NewServer returns an http.Server for handler with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
