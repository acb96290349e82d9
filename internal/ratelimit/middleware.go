package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// ClientIP returns the remote address host of r. When trustProxy is set, the
// first X-Forwarded-For hop wins.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware rejects requests over the client's budget with 429,
// a Retry-After header and a JSON error body. Allowed responses carry
// X-RateLimit-Remaining. Requests whose clientID is empty are not limited.
// onLimited, if set, is called for each rejection.
func RateLimitMiddleware(limiter *RateLimiter, clientID func(r *http.Request) string, onLimited func(r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := clientID(r)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			d := limiter.Take(id)
			if !d.Allowed {
				if onLimited != nil {
					onLimited(r)
				}
				w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds()))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"too many requests"}` + "\n"))
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
