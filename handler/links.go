package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Linanok/Linanok/middleware"
	"github.com/Linanok/Linanok/model"
	"github.com/Linanok/Linanok/store"
	"github.com/Linanok/Linanok/utils"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// linkRequest is the admin API payload for creating or updating a link.
type linkRequest struct {
	OriginalURL           string     `json:"originalURL"`
	Slug                  string     `json:"slug,omitempty"`
	Password              string     `json:"password,omitempty"`
	IsActive              *bool      `json:"isActive,omitempty"`
	AvailableAt           *time.Time `json:"availableAt,omitempty"`
	UnavailableAt         *time.Time `json:"unavailableAt,omitempty"`
	ForwardQueryParams    bool       `json:"forwardQueryParameters"`
	SendRefQueryParameter bool       `json:"sendRefQueryParameter"`
	Description           string     `json:"description,omitempty"`
	DomainIDs             []int64    `json:"domainIds"`
	PreferredDomainID     *int64     `json:"preferredDomainId,omitempty"`
}

// linkResponse decorates a link with the short URL built from its display
// domain.
type linkResponse struct {
	model.Link
	ShortURL string `json:"shortURL,omitempty"`
}

func (h *Handler) linkResponse(r *http.Request, link model.Link, preferredID *int64) linkResponse {
	var preferred *model.Domain
	if preferredID != nil {
		for i := range link.Domains {
			if link.Domains[i].ID == *preferredID {
				preferred = &link.Domains[i]
				break
			}
		}
	}
	current := middleware.CurrentDomain(r.Context())

	resp := linkResponse{Link: link}
	if display := model.SelectDisplayDomain(link.Domains, preferred, current); display != nil {
		resp.ShortURL = display.BaseURL() + "/" + link.ShortPath
	}
	return resp
}

func (h *Handler) validateLinkRequest(req linkRequest) error {
	if err := utils.ValidateURL(req.OriginalURL); err != nil {
		return err
	}
	if req.Slug != "" {
		return utils.ValidateSlug(req.Slug, h.config.Features.MinSlugLength, h.config.Features.MaxSlugLength)
	}
	return nil
}

func (req linkRequest) toModel() model.Link {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return model.Link{
		OriginalURL:           strings.TrimSpace(req.OriginalURL),
		Slug:                  req.Slug,
		Password:              req.Password,
		IsActive:              active,
		AvailableAt:           req.AvailableAt,
		UnavailableAt:         req.UnavailableAt,
		ForwardQueryParams:    req.ForwardQueryParams,
		SendRefQueryParameter: req.SendRefQueryParameter,
		Description:           req.Description,
	}
}

// CreateLink handles POST /api/links.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if err := h.validateLinkRequest(req); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid link")
		return
	}

	created, err := h.links.Create(r.Context(), req.toModel(), req.DomainIDs)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNoDomains):
			SendJSONError(w, http.StatusBadRequest, err, "A link needs at least one domain")
		case errors.Is(err, store.ErrShortPathConflict):
			SendJSONError(w, http.StatusConflict, err, "Could not allocate a unique short path, try a different slug")
		default:
			log.Error().Err(err).Msg("Failed to create link")
			SendJSONError(w, http.StatusInternalServerError, err, "Failed to create link")
		}
		return
	}

	SendJSONSuccess(w, http.StatusCreated, h.linkResponse(r, *created, req.PreferredDomainID))
}

// ListLinks handles GET /api/links.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list links")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to list links")
		return
	}

	responses := make([]linkResponse, len(links))
	for i, link := range links {
		responses[i] = h.linkResponse(r, link, nil)
	}
	SendJSONSuccess(w, http.StatusOK, responses)
}

// GetLink handles GET /api/links/{id}.
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid link id")
		return
	}

	link, err := h.links.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, err, "Link not found")
			return
		}
		log.Error().Err(err).Int64("id", id).Msg("Failed to get link")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to get link")
		return
	}

	SendJSONSuccess(w, http.StatusOK, h.linkResponse(r, *link, nil))
}

// UpdateLink handles PUT /api/links/{id}. The short path is immutable; only
// the destination, flags, window, password, description and domain set can
// change.
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid link id")
		return
	}

	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := h.validateLinkRequest(req); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid link")
		return
	}

	existing, err := h.links.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, err, "Link not found")
			return
		}
		log.Error().Err(err).Int64("id", id).Msg("Failed to load link for update")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to update link")
		return
	}

	updated := req.toModel()
	updated.ID = id
	if err := h.links.Update(r.Context(), updated, req.DomainIDs); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			SendJSONError(w, http.StatusNotFound, err, "Link not found")
		case errors.Is(err, store.ErrNoDomains):
			SendJSONError(w, http.StatusBadRequest, err, "A link needs at least one domain")
		default:
			log.Error().Err(err).Int64("id", id).Msg("Failed to update link")
			SendJSONError(w, http.StatusInternalServerError, err, "Failed to update link")
		}
		return
	}

	// Drop stale cache entries under every domain the link was served on.
	h.cache.InvalidateLink(*existing)

	fresh, err := h.links.GetByID(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Failed to reload link after update")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to update link")
		return
	}
	SendJSONSuccess(w, http.StatusOK, h.linkResponse(r, *fresh, req.PreferredDomainID))
}

// DeleteLink handles DELETE /api/links/{id}. Visits and domain associations
// cascade.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid link id")
		return
	}

	existing, err := h.links.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, err, "Link not found")
			return
		}
		log.Error().Err(err).Int64("id", id).Msg("Failed to load link for delete")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to delete link")
		return
	}

	if err := h.links.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, err, "Link not found")
			return
		}
		log.Error().Err(err).Int64("id", id).Msg("Failed to delete link")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to delete link")
		return
	}

	h.cache.InvalidateLink(*existing)
	w.WriteHeader(http.StatusNoContent)
}

// ListLinkVisits handles GET /api/links/{id}/visits.
func (h *Handler) ListLinkVisits(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid link id")
		return
	}

	if _, err := h.links.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, err, "Link not found")
			return
		}
		log.Error().Err(err).Int64("id", id).Msg("Failed to load link for visits")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to list visits")
		return
	}

	records, err := h.visits.ListByLink(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Failed to list visits")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to list visits")
		return
	}
	SendJSONSuccess(w, http.StatusOK, records)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
