package middleware

import (
	"context"
	"net/http"

	"github.com/colemurrin/pricewatch/internal/auth"
	"github.com/colemurrin/pricewatch/internal/models"
	pkghttp "github.com/colemurrin/pricewatch/pkg/http"
)

type contextKey string

const (
	userContextKey  contextKey = "authenticated_user"
	tokenContextKey contextKey = "session_token"
)

// SessionValidator resolves a plaintext session token to its user
type SessionValidator interface {
	Validate(ctx context.Context, plainToken string) (*models.User, error)
}

// RequireSession rejects requests without a valid session token and
// places the resolved user in the request context. The token is taken
// from the Authorization header with a cookie fallback.
func RequireSession(sessions SessionValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractBearerToken(r, cookieName)

			user, err := sessions.Validate(r.Context(), token)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			ctx = context.WithValue(ctx, tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user placed by RequireSession
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

// TokenFromContext returns the validated session token for the request
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok
}
