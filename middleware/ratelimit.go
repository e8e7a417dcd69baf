package middleware

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"organic-grocery/utils"
)

// RateLimiter throttles endpoints with Redis-backed fixed windows keyed by
// client IP. With no Redis configured it degrades to a pass-through, so
// development setups work without one.
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter connects to Redis at addr; an empty addr disables
// limiting.
func NewRateLimiter(addr string) *RateLimiter {
	if addr == "" {
		return &RateLimiter{}
	}
	return &RateLimiter{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Limit returns a middleware that allows max requests per window per client
// IP for the named endpoint.
func (rl *RateLimiter) Limit(name string, max int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.client == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("ratelimit:%s:%s", name, clientIP(r))
			count, err := rl.client.Incr(r.Context(), key).Result()
			if err != nil {
				// Redis being down must not take auth down with it.
				log.Printf("Rate limiter unavailable: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rl.client.Expire(r.Context(), key, window)
			}
			if count > int64(max) {
				utils.RespondError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
