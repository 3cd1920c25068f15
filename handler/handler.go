package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Linanok/Linanok/cache"
	"github.com/Linanok/Linanok/config"
	"github.com/Linanok/Linanok/model"
	"github.com/Linanok/Linanok/store"
	"github.com/Linanok/Linanok/utils"
	"github.com/Linanok/Linanok/visits"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Handler serves the redirect pipeline and the admin API.
type Handler struct {
	config  config.Config
	links   *store.LinkStore
	domains *store.DomainStore
	visits  *store.VisitStore
	cache   *cache.Cache
	redis   *redis.Client
	queue   *visits.Queue
}

// New creates a new handler with dependency injection.
func New(cfg config.Config, links *store.LinkStore, domains *store.DomainStore, visitStore *store.VisitStore, cacheClient *cache.Cache, redisClient *redis.Client, queue *visits.Queue) *Handler {
	return &Handler{
		config:  cfg,
		links:   links,
		domains: domains,
		visits:  visitStore,
		cache:   cacheClient,
		redis:   redisClient,
		queue:   queue,
	}
}

// clientIP extracts the requester's IP honoring the proxy configuration.
func (h *Handler) clientIP(r *http.Request) string {
	return utils.ClientIP(r, h.config.WebServer.TrustProxyHeaders)
}

// resolveCurrentDomain maps the inbound request to a registered domain by
// exact (protocol, host) match. Returns nil without error when the pair is
// not registered.
func (h *Handler) resolveCurrentDomain(r *http.Request) (*model.Domain, error) {
	protocol := utils.RequestProtocol(r, h.config.WebServer.TrustProxyHeaders)
	domain, err := h.domains.GetByProtocolHost(r.Context(), protocol, r.Host)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return domain, nil
}

// lookupLink fetches the link serving shortPath through the given domain,
// consulting the cache first. A nil domain means bootstrap mode: no domain is
// registered yet and the lookup is unscoped.
func (h *Handler) lookupLink(r *http.Request, shortPath string, domain *model.Domain) (*model.Link, error) {
	if domain == nil {
		return h.links.GetByShortPath(r.Context(), shortPath)
	}

	if cached, found := h.cache.GetLink(domain.ID, shortPath); found {
		return &cached, nil
	}

	link, err := h.links.GetByShortPathForDomain(r.Context(), shortPath, domain.ID)
	if err != nil {
		return nil, err
	}

	h.cache.SetLink(domain.ID, shortPath, *link)
	return link, nil
}

// operationContext bounds a storage or Redis operation by the configured
// Redis operation timeout.
func operationContext(r *http.Request, cfg config.Config) (context.Context, context.CancelFunc) {
	timeout := time.Duration(cfg.Redis.OperationTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := operationContext(r, h.config)
	defer cancel()

	status := "ok"
	redisStatus := "ok"
	if err := h.redis.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("Redis health check failed")
		status = "degraded"
		redisStatus = "unavailable"
	}

	databaseStatus := "ok"
	if _, err := h.domains.Any(ctx); err != nil {
		log.Error().Err(err).Msg("Database health check failed")
		status = "degraded"
		databaseStatus = "unavailable"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	SendJSONSuccess(w, code, map[string]string{
		"status":   status,
		"redis":    redisStatus,
		"database": databaseStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
