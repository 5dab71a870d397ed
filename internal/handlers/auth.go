package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/colemurrin/pricewatch/internal/auth"
	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/colemurrin/pricewatch/internal/services"
	pkghttp "github.com/colemurrin/pricewatch/pkg/http"
)

// AuthFlow defines the verification and login flow operations the
// handler depends on
type AuthFlow interface {
	StartRegistration(ctx context.Context, email, phoneNumber string) (*services.FlowResult, error)
	VerifyEmail(ctx context.Context, email, code, origin string) (*services.FlowResult, error)
	VerifyPhone(ctx context.Context, email, code, origin string) (*services.TokenResult, error)
	StartLogin(ctx context.Context, email string) (*services.FlowResult, error)
	VerifyLogin(ctx context.Context, email, code, origin string) (*services.TokenResult, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandler handles registration, verification and login endpoints
type AuthHandler struct {
	flow       AuthFlow
	cookies    auth.CookieConfig
	sessionTTL time.Duration
	ipConfig   *pkghttp.IPConfig
	logger     *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(flow AuthFlow, cookies auth.CookieConfig, sessionTTL time.Duration, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		flow:       flow,
		cookies:    cookies,
		sessionTTL: sessionTTL,
		ipConfig:   ipConfig,
		logger:     logger,
	}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
}

type startLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type flowResponse struct {
	Message string `json:"message"`
	DevCode string `json:"dev_code,omitempty"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.flow.StartRegistration(r.Context(), normalizeEmail(req.Email), strings.TrimSpace(req.PhoneNumber))
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, flowResponse{Message: result.Message, DevCode: result.DevCode})
}

// VerifyEmail handles POST /api/v1/auth/verify-email
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.flow.VerifyEmail(r.Context(), normalizeEmail(req.Email), req.Code, h.origin(r))
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, flowResponse{Message: result.Message, DevCode: result.DevCode})
}

// VerifyPhone handles POST /api/v1/auth/verify-phone
func (h *AuthHandler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.flow.VerifyPhone(r.Context(), normalizeEmail(req.Email), req.Code, h.origin(r))
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	h.writeSession(w, result)
}

// StartLogin handles POST /api/v1/auth/login
func (h *AuthHandler) StartLogin(w http.ResponseWriter, r *http.Request) {
	var req startLoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.flow.StartLogin(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, flowResponse{Message: result.Message, DevCode: result.DevCode})
}

// VerifyLogin handles POST /api/v1/auth/login/verify
func (h *AuthHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.flow.VerifyLogin(r.Context(), normalizeEmail(req.Email), req.Code, h.origin(r))
	if err != nil {
		h.writeFlowError(w, err)
		return
	}

	h.writeSession(w, result)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractBearerToken(r, h.cookies.Name)

	if err := h.flow.Logout(r.Context(), token); err != nil {
		pkghttp.WriteInternalError(w, "Failed to log out")
		return
	}

	auth.ClearSessionCookie(w, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out."})
}

func (h *AuthHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid JSON payload")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		pkghttp.WriteBadRequest(w, formatValidationError(err))
		return false
	}
	return true
}

// origin returns the client IP used as part of the attempt subject key
func (h *AuthHandler) origin(r *http.Request) string {
	return pkghttp.ExtractClientIP(r, h.ipConfig)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, result *services.TokenResult) {
	auth.SetSessionCookie(w, result.Token, int(h.sessionTTL.Seconds()), h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, tokenResponse{Token: result.Token, User: result.User})
}

// writeFlowError maps flow errors to HTTP responses. Messages stay
// generic so responses never confirm whether a code exists or why it
// was rejected.
func (h *AuthHandler) writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Unknown account")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Account is already verified")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Request cannot be processed in the current state")
	case errors.Is(err, models.ErrInvalidCode):
		pkghttp.WriteBadRequest(w, "Invalid or expired code")
	case errors.Is(err, models.ErrRateLimited):
		pkghttp.WriteTooManyRequests(w, "Too many failed attempts, try again later")
	case errors.Is(err, models.ErrNotEligible):
		pkghttp.WriteError(w, http.StatusForbidden, "not_eligible", "Account has not completed verification")
	case errors.Is(err, models.ErrUnauthenticated):
		pkghttp.WriteUnauthorized(w, "Authentication required")
	case errors.Is(err, models.ErrDeliveryFailed), errors.Is(err, models.ErrMisconfiguredDelivery):
		pkghttp.WriteBadGateway(w, "Code delivery failed, try again later")
	default:
		h.logger.Error("unhandled auth flow error", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// normalizeEmail lowercases and trims an email so lookups and subject
// keys are case-insensitive
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ AuthFlow = (*services.AuthService)(nil)
