package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/api/responses"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const msgTooManyLogins = "Too many login attempts. Please try again later."

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AuthRateLimitPolicy caps attempts per client IP within a fixed window.
type AuthRateLimitPolicy struct {
	name   string
	window time.Duration
	limit  int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, limit: ipLimit}
}

func (p AuthRateLimitPolicy) key(store rateLimiterStore, ip string) string {
	return store.RateLimitKey("ip:" + p.name + ":" + ip)
}

// AuthRateLimit counts attempts per client IP in the store and answers 429
// once the policy limit is exceeded. It is disabled without a store or with
// a zero window or limit. When the store itself fails the request is let
// through: an unavailable counter must not lock shoppers out of login.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || policy.window <= 0 || policy.limit <= 0 {
			return next
		}
		if logg == nil {
			logg = logger.Nop()
		}
		retryAfter := strconv.Itoa(int(policy.window.Seconds()))
		limit := strconv.Itoa(policy.limit)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)
			if ip == "" {
				next.ServeHTTP(w, r)
				return
			}

			count, err := store.IncrWithTTL(ctx, policy.key(store, ip), policy.window)
			if err != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{
					"policy": policy.name,
					"error":  err.Error(),
				}), "auth.rate_limit.store_unavailable")
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(policy.limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(policy.limit) {
				logg.Warn(logg.WithFields(ctx, map[string]any{
					"policy":   policy.name,
					"ip":       ip,
					"attempts": count,
					"limit":    policy.limit,
				}), "auth.rate_limit.blocked")
				w.Header().Set("Retry-After", retryAfter)
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, msgTooManyLogins))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the left-most X-Forwarded-For hop, then X-Real-IP, then
// the socket peer.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
