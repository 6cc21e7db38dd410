package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fmidev/geonames-engine/internal/adminauth"
)

type contextKey string

const keyInfoContextKey contextKey = "admin_key_info"
const requestIDContextKey contextKey = "request_id"

// AdminAuth returns middleware that validates admin API keys from the
// Authorization: Bearer header, the X-API-Key header, or the api_key query
// parameter, in that priority order. Grounded on the teacher's
// gateway/middleware.Auth, adapted to internal/adminauth's KeyInfo.
func AdminAuth(validator *adminauth.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing admin api key"})
				return
			}

			info, err := validator.Validate(r.Context(), key)
			if err != nil {
				switch err {
				case adminauth.ErrInvalidKey:
					writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid admin api key"})
				case adminauth.ErrExpiredKey:
					writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "expired admin api key"})
				default:
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "authentication error"})
				}
				return
			}

			ctx := context.WithValue(r.Context(), keyInfoContextKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetKeyInfo retrieves the validated admin KeyInfo from the request context.
func GetKeyInfo(ctx context.Context) *adminauth.KeyInfo {
	info, _ := ctx.Value(keyInfoContextKey).(*adminauth.KeyInfo)
	return info
}

// AdminRateLimit returns middleware enforcing the per-key token bucket set
// up by AdminAuth. A request with no KeyInfo in context is let through,
// since AdminAuth already rejects it.
func AdminRateLimit(limiter *adminauth.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := GetKeyInfo(r.Context())
			if info == nil {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(info.ID, info.RateLimit) {
				w.Header().Set("Retry-After", "60")
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID assigns each request a random hex id, attaching it to the
// response header and the request's logger context. The teacher's router
// wires an equivalent RequestID middleware from pkg/middleware; this
// engine's pkg/middleware package only carries Timeout/Metrics, so the
// request-id assignment — grounded on pkg/logger's WithRequestID context
// helper — lives here instead.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggerFromContext returns a logger annotated with the request id set by
// RequestID, mirroring pkg/logger.FromContext's shape for this surface.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		logger = logger.With("request_id", id)
	}
	return logger
}

func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

func newRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
