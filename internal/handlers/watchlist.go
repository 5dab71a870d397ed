package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/colemurrin/pricewatch/internal/middleware"
	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/colemurrin/pricewatch/internal/services"
	pkghttp "github.com/colemurrin/pricewatch/pkg/http"
	"github.com/go-chi/chi/v5"
)

// WatchlistHandler handles watchlist CRUD, run history and manual checks
type WatchlistHandler struct {
	watchlist *services.WatchlistService
	checks    *services.CheckService
	logger    *slog.Logger
}

// NewWatchlistHandler creates a new WatchlistHandler
func NewWatchlistHandler(watchlist *services.WatchlistService, checks *services.CheckService, logger *slog.Logger) *WatchlistHandler {
	return &WatchlistHandler{
		watchlist: watchlist,
		checks:    checks,
		logger:    logger,
	}
}

type createItemRequest struct {
	ProductURL string  `json:"product_url" validate:"required,url"`
	Threshold  float64 `json:"threshold" validate:"required,gt=0"`
	IsActive   *bool   `json:"is_active"`
}

type updateItemRequest struct {
	Threshold *float64 `json:"threshold" validate:"omitempty,gt=0"`
	IsActive  *bool    `json:"is_active"`
}

// Create handles POST /api/v1/watchlist
func (h *WatchlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid JSON payload")
		return
	}
	if err := validate.Struct(&req); err != nil {
		pkghttp.WriteBadRequest(w, formatValidationError(err))
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	item, err := h.watchlist.CreateItem(r.Context(), user.ID, req.ProductURL, req.Threshold, isActive)
	if err != nil {
		h.writeItemError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, item)
}

// List handles GET /api/v1/watchlist
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	items, err := h.watchlist.ListItems(r.Context(), user.ID)
	if err != nil {
		h.writeItemError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// Update handles PATCH /api/v1/watchlist/{itemID}
func (h *WatchlistHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid JSON payload")
		return
	}
	if err := validate.Struct(&req); err != nil {
		pkghttp.WriteBadRequest(w, formatValidationError(err))
		return
	}
	if req.Threshold == nil && req.IsActive == nil {
		pkghttp.WriteBadRequest(w, "At least one field must be provided")
		return
	}

	item, err := h.watchlist.UpdateItem(r.Context(), user.ID, chi.URLParam(r, "itemID"), services.WatchlistUpdate{
		Threshold: req.Threshold,
		IsActive:  req.IsActive,
	})
	if err != nil {
		h.writeItemError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/v1/watchlist/{itemID}
func (h *WatchlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.watchlist.DeleteItem(r.Context(), user.ID, chi.URLParam(r, "itemID")); err != nil {
		h.writeItemError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListRuns handles GET /api/v1/watchlist/{itemID}/runs
func (h *WatchlistHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	runs, err := h.watchlist.ListRuns(r.Context(), user.ID, chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeItemError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// Check handles POST /api/v1/watchlist/{itemID}/check, running an
// on-demand price check for an active owned item
func (h *WatchlistHandler) Check(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	item, err := h.watchlist.GetOwnedActiveItem(r.Context(), user.ID, chi.URLParam(r, "itemID"))
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Item is inactive")
			return
		}
		h.writeItemError(w, err)
		return
	}

	run, err := h.checks.RunCheck(r.Context(), item)
	if err != nil {
		h.writeItemError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, run)
}

func (h *WatchlistHandler) writeItemError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Watchlist item not found")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Request cannot be processed")
	default:
		h.logger.Error("unhandled watchlist error", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
