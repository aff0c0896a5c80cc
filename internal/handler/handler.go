package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"card-rewards-api/internal/catalog"
	"card-rewards-api/internal/database"
	"card-rewards-api/internal/features"
	"card-rewards-api/internal/models"
	"card-rewards-api/internal/service"
	"card-rewards-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	features    *features.Manager
	logger      *zap.Logger
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
	Features    *features.Manager
	Logger      *zap.Logger
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Features == nil {
		opts.Features = features.NewManager()
	}
	return &Handler{
		service:     svc,
		features:    opts.Features,
		logger:      opts.Logger,
		maxBodySize: opts.MaxBodySize,
	}
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/cards", func(r chi.Router) {
		r.Post("/", h.CreateCard)
		r.Get("/", h.ListCards)
		r.Get("/{card_id}", h.GetCard)
		r.Delete("/{card_id}", h.DeleteCard)
	})

	r.Post("/recommendations", h.Recommend)

	r.Route("/admin/features", func(r chi.Router) {
		r.Get("/", h.ListFeatures)
		r.Put("/{name}", h.SetFeature)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// CreateCard handles POST /cards
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req catalog.CardDocument
	if !h.decode(w, r, &req) {
		return
	}

	card, err := h.service.CreateCard(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, card)
}

// ListCards handles GET /cards
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	var filter database.CardFilter

	if activeParam := r.URL.Query().Get("active"); activeParam != "" {
		active, err := strconv.ParseBool(validation.SanitizeString(activeParam))
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid 'active' parameter, must be true or false")
			return
		}
		filter.Active = &active
	}
	filter.Issuer = validation.SanitizeString(r.URL.Query().Get("issuer"))

	cards, err := h.service.ListCards(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, cards)
}

// GetCard handles GET /cards/{card_id}
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID := validation.SanitizeString(chi.URLParam(r, "card_id"))

	card, err := h.service.GetCard(r.Context(), cardID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, card)
}

// DeleteCard handles DELETE /cards/{card_id}
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID := validation.SanitizeString(chi.URLParam(r, "card_id"))

	if err := h.service.DeleteCard(r.Context(), cardID); err != nil {
		h.respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Recommend handles POST /recommendations
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if !h.decode(w, r, &req) {
		return
	}

	response, err := h.service.Recommend(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// ListFeatures handles GET /admin/features
func (h *Handler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.features.List())
}

// SetFeature handles PUT /admin/features/{name}
func (h *Handler) SetFeature(w http.ResponseWriter, r *http.Request) {
	name := validation.SanitizeString(chi.URLParam(r, "name"))

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		h.respondError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	if !h.features.Set(name, *req.Enabled) {
		h.respondError(w, http.StatusNotFound, "unknown feature flag")
		return
	}

	h.logger.Info("feature flag changed", zap.String("flag", name), zap.Bool("enabled", *req.Enabled))
	h.respondJSON(w, http.StatusOK, features.FeatureFlag{Name: name, Enabled: *req.Enabled})
}

// decode reads a JSON body into dest, responding with 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	// Limit request body size to prevent abuse
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return false
	}
	return true
}

// respondServiceError maps service errors onto status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var validationErr *validation.ValidationError
	switch {
	case errors.As(err, &validationErr):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
