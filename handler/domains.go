package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Linanok/Linanok/model"
	"github.com/Linanok/Linanok/store"
	"github.com/Linanok/Linanok/utils"

	"github.com/rs/zerolog/log"
)

type domainRequest struct {
	Host                  string `json:"host"`
	Protocol              string `json:"protocol"`
	IsActive              *bool  `json:"isActive,omitempty"`
	IsAdminPanelAvailable bool   `json:"isAdminPanelAvailable"`
}

func (req domainRequest) toModel() (model.Domain, error) {
	host := strings.TrimSpace(req.Host)
	if host == "" {
		return model.Domain{}, utils.ErrEmptyHost
	}

	protocol := model.Protocol(req.Protocol)
	if req.Protocol == "" {
		protocol = model.ProtocolHTTPS
	}
	if !protocol.Valid() {
		return model.Domain{}, utils.ErrInvalidScheme
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return model.Domain{
		Host:                  host,
		Protocol:              protocol,
		IsActive:              active,
		IsAdminPanelAvailable: req.IsAdminPanelAvailable,
	}, nil
}

func sendDomainWriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrDomainExists):
		SendJSONError(w, http.StatusConflict, err, "A domain with this protocol and host already exists")
	case errors.Is(err, store.ErrAdminAccessRequired):
		SendJSONError(w, http.StatusUnprocessableEntity, err, "At least one active domain must keep the admin panel available")
	case errors.Is(err, store.ErrNotFound):
		SendJSONError(w, http.StatusNotFound, err, "Domain not found")
	case errors.Is(err, store.ErrDomainInUse):
		SendJSONError(w, http.StatusConflict, err, "Domain is still referenced by links")
	default:
		log.Error().Err(err).Msg("Domain write failed")
		SendJSONError(w, http.StatusInternalServerError, err, "Domain write failed")
	}
}

// CreateDomain handles POST /api/domains.
func (h *Handler) CreateDomain(w http.ResponseWriter, r *http.Request) {
	var req domainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	domain, err := req.toModel()
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid domain")
		return
	}

	created, err := h.domains.Create(r.Context(), domain)
	if err != nil {
		sendDomainWriteError(w, err)
		return
	}
	SendJSONSuccess(w, http.StatusCreated, created)
}

// CreateCurrentDomain handles POST /api/domains/current: it registers the
// (protocol, host) pair the request itself came through. This is the
// bootstrap shortcut for standing up the first domain.
func (h *Handler) CreateCurrentDomain(w http.ResponseWriter, r *http.Request) {
	domain := model.Domain{
		Host:                  r.Host,
		Protocol:              utils.RequestProtocol(r, h.config.WebServer.TrustProxyHeaders),
		IsActive:              true,
		IsAdminPanelAvailable: true,
	}

	created, err := h.domains.Create(r.Context(), domain)
	if err != nil {
		sendDomainWriteError(w, err)
		return
	}

	log.Info().Str("host", created.Host).Str("protocol", string(created.Protocol)).Msg("Current domain registered")
	SendJSONSuccess(w, http.StatusCreated, created)
}

// ListDomains handles GET /api/domains.
func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.domains.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list domains")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to list domains")
		return
	}
	SendJSONSuccess(w, http.StatusOK, domains)
}

// GetDomain handles GET /api/domains/{id}.
func (h *Handler) GetDomain(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid domain id")
		return
	}

	domain, err := h.domains.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, err, "Domain not found")
			return
		}
		log.Error().Err(err).Int64("id", id).Msg("Failed to get domain")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to get domain")
		return
	}
	SendJSONSuccess(w, http.StatusOK, domain)
}

// UpdateDomain handles PUT /api/domains/{id}.
func (h *Handler) UpdateDomain(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid domain id")
		return
	}

	var req domainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	domain, err := req.toModel()
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid domain")
		return
	}
	domain.ID = id

	if err := h.domains.Update(r.Context(), domain); err != nil {
		sendDomainWriteError(w, err)
		return
	}

	updated, err := h.domains.GetByID(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Failed to reload domain after update")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to update domain")
		return
	}
	SendJSONSuccess(w, http.StatusOK, updated)
}

// DeleteDomain handles DELETE /api/domains/{id}.
func (h *Handler) DeleteDomain(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid domain id")
		return
	}

	if err := h.domains.Delete(r.Context(), id); err != nil {
		sendDomainWriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
