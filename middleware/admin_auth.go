package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type contextKey string

const superAdminKey contextKey = "superAdmin"

// IsSuperAdmin reports whether the request authenticated with the super admin
// key. Super admins bypass the per-domain admin panel gate.
func IsSuperAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(superAdminKey).(bool)
	return v
}

// AdminAuth protects admin endpoints with API key authentication. Two keys
// are recognized: the regular admin key, and an optional super admin key that
// additionally bypasses the domain admin panel gate.
type AdminAuth struct {
	apiKey        string
	superAdminKey string
	enabled       bool
}

// NewAdminAuth creates a new admin authentication middleware.
func NewAdminAuth(apiKey, superAdminKey string, enabled bool) *AdminAuth {
	if enabled && apiKey == "" && superAdminKey == "" {
		log.Warn().Msg("Admin authentication enabled but no API key configured - admin routes will be inaccessible")
	}
	return &AdminAuth{
		apiKey:        apiKey,
		superAdminKey: superAdminKey,
		enabled:       enabled,
	}
}

// Protect wraps an HTTP handler with admin authentication.
func (a *AdminAuth) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next.ServeHTTP(w, r)
			return
		}

		if a.apiKey == "" && a.superAdminKey == "" {
			log.Warn().Str("path", r.URL.Path).Msg("Admin route accessed but no API key configured")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"Admin authentication not configured"}`))
			return
		}

		providedKey := r.Header.Get("X-Admin-Key")
		if providedKey == "" {
			// Also check Authorization header (Bearer token format)
			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			log.Warn().
				Str("path", r.URL.Path).
				Str("ip", r.RemoteAddr).
				Msg("Admin route accessed without API key")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Missing admin API key. Provide via X-Admin-Key header or Authorization: Bearer <key>"}`))
			return
		}

		if a.superAdminKey != "" && subtle.ConstantTimeCompare([]byte(providedKey), []byte(a.superAdminKey)) == 1 {
			log.Debug().
				Str("path", r.URL.Path).
				Str("ip", r.RemoteAddr).
				Msg("Super admin authenticated successfully")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), superAdminKey, true)))
			return
		}

		if a.apiKey == "" || subtle.ConstantTimeCompare([]byte(providedKey), []byte(a.apiKey)) != 1 {
			log.Warn().
				Str("path", r.URL.Path).
				Str("ip", r.RemoteAddr).
				Msg("Admin route accessed with invalid API key")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"Invalid admin API key"}`))
			return
		}

		log.Debug().
			Str("path", r.URL.Path).
			Str("ip", r.RemoteAddr).
			Msg("Admin authenticated successfully")

		next.ServeHTTP(w, r)
	})
}
