package handler

import (
	"crypto/subtle"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/Linanok/Linanok/store"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

//go:embed templates/password.html
var templateFS embed.FS

var passwordTemplate = template.Must(template.ParseFS(templateFS, "templates/password.html"))

type passwordPage struct {
	ShortPath string
	Error     string
}

func (h *Handler) renderPasswordChallenge(w http.ResponseWriter, status int, shortPath, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := passwordTemplate.Execute(w, passwordPage{ShortPath: shortPath, Error: errMsg}); err != nil {
		log.Error().Err(err).Msg("Failed to render password challenge")
	}
}

// VerifyPassword handles POST /{shortPath} for password-protected links. The
// submitted secret is compared to the stored one by exact, case-sensitive
// match. Attempts are throttled per (link, requester) pair; exceeding the
// budget is a cooldown, not a lockout.
func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
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
			http.NotFound(w, r)
			return
		}
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
		http.NotFound(w, r)
		return
	}

	if !link.HasPassword() {
		// Nothing to verify, behave like a plain redirect.
		h.issueRedirect(w, r, link, domain)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderPasswordChallenge(w, http.StatusBadRequest, shortPath, "Invalid form submission.")
		return
	}
	password := r.PostFormValue("password")

	throttled, err := h.registerPasswordAttempt(r, shortPath)
	if err != nil {
		// Redis being down must not take the challenge path down with it.
		log.Error().Err(err).Str("short_path", shortPath).Msg("Password attempt throttling unavailable")
	}
	if throttled {
		log.Warn().Str("short_path", shortPath).Str("ip", h.clientIP(r)).Msg("Password attempts throttled")
		h.renderPasswordChallenge(w, http.StatusTooManyRequests, shortPath, "Too many attempts. Please try again later.")
		return
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(link.Password)) != 1 {
		h.renderPasswordChallenge(w, http.StatusUnauthorized, shortPath, "Wrong password. Please try again.")
		return
	}

	h.issueRedirect(w, r, link, domain)
}

// registerPasswordAttempt counts a challenge submission against the
// per-(link, requester) budget and reports whether it exceeds it.
func (h *Handler) registerPasswordAttempt(r *http.Request, shortPath string) (bool, error) {
	ctx, cancel := operationContext(r, h.config)
	defer cancel()

	limit := h.config.Features.PasswordAttempts
	window := time.Duration(h.config.Features.PasswordAttemptWindowMinutes) * time.Minute

	key := fmt.Sprintf("password_attempts:%s:%s", shortPath, h.clientIP(r))
	attempts, err := h.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if attempts == 1 {
		h.redis.Expire(ctx, key, window)
	}
	return attempts > int64(limit), nil
}
