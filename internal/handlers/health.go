package handlers

import (
	"net/http"
	"time"

	"github.com/colemurrin/pricewatch/internal/database"
	pkghttp "github.com/colemurrin/pricewatch/pkg/http"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db *database.DB
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles GET /health (liveness)
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready (readiness, includes database connectivity)
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		pkghttp.WriteError(w, http.StatusServiceUnavailable, "not_ready", "Database unavailable")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
