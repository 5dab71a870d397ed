package handlers

import (
	"net/http"

	"github.com/colemurrin/pricewatch/internal/middleware"
	pkghttp "github.com/colemurrin/pricewatch/pkg/http"
)

// UserHandler serves the authenticated user's own profile
type UserHandler struct{}

// NewUserHandler creates a new UserHandler
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}
