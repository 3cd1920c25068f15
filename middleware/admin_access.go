package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Linanok/Linanok/model"
	"github.com/Linanok/Linanok/store"
	"github.com/Linanok/Linanok/utils"

	"github.com/rs/zerolog/log"
)

const currentDomainKey contextKey = "currentDomain"

// CurrentDomain returns the registered domain the request came through, or
// nil when the serving (protocol, host) pair is not registered.
func CurrentDomain(ctx context.Context) *model.Domain {
	d, _ := ctx.Value(currentDomainKey).(*model.Domain)
	return d
}

// DomainResolver looks up registered domains for the gate.
type DomainResolver interface {
	GetByProtocolHost(ctx context.Context, protocol model.Protocol, host string) (*model.Domain, error)
	Any(ctx context.Context) (bool, error)
}

// AdminAccess gates the admin API by serving domain: only domains flagged as
// active with the admin panel available may reach it. Two exceptions: while no
// domain is registered at all the gate stays open so the first domain can be
// created, and super admins bypass the gate entirely. The resolved domain is
// stored on the request context for handlers.
type AdminAccess struct {
	domains           DomainResolver
	trustProxyHeaders bool
}

func NewAdminAccess(domains DomainResolver, trustProxyHeaders bool) *AdminAccess {
	return &AdminAccess{domains: domains, trustProxyHeaders: trustProxyHeaders}
}

// Gate wraps an admin handler with the domain check.
func (a *AdminAccess) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		protocol := utils.RequestProtocol(r, a.trustProxyHeaders)
		domain, err := a.domains.GetByProtocolHost(ctx, protocol, r.Host)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("host", r.Host).Msg("Failed to resolve admin domain")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"Internal server error"}`))
			return
		}

		if domain != nil {
			ctx = context.WithValue(ctx, currentDomainKey, domain)
			r = r.WithContext(ctx)
		}

		if IsSuperAdmin(ctx) {
			next.ServeHTTP(w, r)
			return
		}

		if domain == nil {
			any, err := a.domains.Any(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Failed to check for registered domains")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"Internal server error"}`))
				return
			}
			if any {
				// Unregistered host with domains present: hide the admin surface.
				http.NotFound(w, r)
				return
			}
			// Bootstrap: no domains registered yet, let the first one be created.
			next.ServeHTTP(w, r)
			return
		}

		if !domain.IsActive || !domain.IsAdminPanelAvailable {
			log.Warn().
				Str("host", r.Host).
				Str("path", r.URL.Path).
				Msg("Admin access denied for domain")
			http.NotFound(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
