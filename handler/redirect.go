package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Linanok/Linanok/model"
	"github.com/Linanok/Linanok/store"
	"github.com/Linanok/Linanok/utils"
	"github.com/Linanok/Linanok/visits"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Redirect handles GET /{shortPath}. It resolves the serving domain, looks up
// the link scoped to it, checks availability, defers password-protected links
// to the challenge page, and issues a 302 with the composed destination while
// the visit is recorded in the background.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortPath := mux.Vars(r)["shortPath"]
	if shortPath == "" {
		http.NotFound(w, r)
		return
	}

	domain, err := h.resolveCurrentDomain(r)
	if err != nil {
		log.Error().Err(err).Str("host", r.Host).Msg("Failed to resolve serving domain")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if domain == nil {
		any, err := h.domains.Any(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to check for registered domains")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if any {
			// Unregistered host while domains exist: serve nothing.
			http.NotFound(w, r)
			return
		}
		// Bootstrap mode: no domain registered yet, fall through with an
		// unscoped lookup.
	}

	link, err := h.lookupLink(r, shortPath, domain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Error().Err(err).Str("short_path", shortPath).Msg("Failed to look up link")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if !link.IsAvailable(time.Now()) {
		log.Debug().Str("short_path", shortPath).Msg("Link not available")
		http.NotFound(w, r)
		return
	}

	if link.HasPassword() {
		h.renderPasswordChallenge(w, http.StatusOK, shortPath, "")
		return
	}

	h.issueRedirect(w, r, link, domain)
}

// issueRedirect composes the destination, fires the visit job, and responds.
// The visit job is enqueued concurrently so redirect latency never depends on
// the queue.
func (h *Handler) issueRedirect(w http.ResponseWriter, r *http.Request, link *model.Link, domain *model.Domain) {
	location, err := utils.ComposeRedirectURL(*link, r.Host, r.URL.Query())
	if err != nil {
		log.Error().Err(err).Str("short_path", link.ShortPath).Str("original_url", link.OriginalURL).Msg("Failed to compose redirect URL")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.recordVisit(r, link, domain)

	log.Info().
		Str("short_path", link.ShortPath).
		Str("location", location).
		Str("host", r.Host).
		Msg("Redirecting")
	http.Redirect(w, r, location, http.StatusFound)
}

// recordVisit enqueues the visit job off the request goroutine. Visits are
// only attributable to registered domains, so bootstrap-mode redirects are
// not recorded.
func (h *Handler) recordVisit(r *http.Request, link *model.Link, domain *model.Domain) {
	if domain == nil {
		return
	}

	job := visits.Job{
		LinkID:    link.ID,
		DomainID:  domain.ID,
		IP:        h.clientIP(r),
		UserAgent: r.UserAgent(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.queue.Enqueue(ctx, job)
	}()
}
