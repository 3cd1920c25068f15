package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Linanok/Linanok/model"
	"github.com/Linanok/Linanok/store"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

// GenerateQR handles GET /qr/{shortPath} - generates a QR code image for a
// short link, rendered against its display domain.
func (h *Handler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	shortPath := mux.Vars(r)["shortPath"]
	if shortPath == "" {
		http.NotFound(w, r)
		return
	}

	domain, err := h.resolveCurrentDomain(r)
	if err != nil {
		log.Error().Err(err).Str("host", r.Host).Msg("Failed to resolve serving domain for QR")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to generate QR code")
		return
	}

	if domain == nil {
		any, err := h.domains.Any(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to check for registered domains")
			SendJSONError(w, http.StatusInternalServerError, err, "Failed to generate QR code")
			return
		}
		if any {
			SendJSONError(w, http.StatusNotFound, errors.New("link not found"), "Short link does not exist")
			return
		}
	}

	link, err := h.lookupLink(r, shortPath, domain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, errors.New("link not found"), "Short link does not exist")
			return
		}
		log.Error().Err(err).Str("short_path", shortPath).Msg("Failed to look up link for QR")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to generate QR code")
		return
	}

	if !link.IsAvailable(time.Now()) {
		SendJSONError(w, http.StatusNotFound, errors.New("link not found"), "Short link does not exist")
		return
	}

	query := r.URL.Query()

	// Size parameter (default: 256, min: 128, max: 1024)
	size := 256
	if sizeStr := query.Get("size"); sizeStr != "" {
		parsedSize, err := strconv.Atoi(sizeStr)
		if err != nil {
			SendJSONError(w, http.StatusBadRequest, errors.New("invalid size parameter"), "Size must be a number")
			return
		}
		if parsedSize < 128 || parsedSize > 1024 {
			SendJSONError(w, http.StatusBadRequest, errors.New("size out of range"), "Size must be between 128 and 1024")
			return
		}
		size = parsedSize
	}

	// Error correction level (default: medium)
	level := qrcode.Medium
	switch query.Get("level") {
	case "", "medium":
	case "low":
		level = qrcode.Low
	case "high":
		level = qrcode.High
	case "highest":
		level = qrcode.Highest
	default:
		SendJSONError(w, http.StatusBadRequest, errors.New("invalid level parameter"), "Level must be: low, medium, high, or highest")
		return
	}

	display := model.SelectDisplayDomain(link.Domains, nil, domain)
	if display == nil {
		SendJSONError(w, http.StatusNotFound, errors.New("link not found"), "Short link does not exist")
		return
	}
	fullURL := display.BaseURL() + "/" + link.ShortPath

	qrCode, err := qrcode.Encode(fullURL, level, size)
	if err != nil {
		log.Error().Err(err).Str("url", fullURL).Msg("Failed to generate QR code")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(qrCode)))
	if _, err := w.Write(qrCode); err != nil {
		log.Error().Err(err).Msg("Failed to write QR code response")
		return
	}

	log.Info().
		Str("short_path", shortPath).
		Str("full_url", fullURL).
		Int("size", size).
		Msg("QR code generated")
}
