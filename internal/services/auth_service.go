package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/colemurrin/pricewatch/internal/models"
	pkglogger "github.com/colemurrin/pricewatch/pkg/logger"
)

// FlowResult is the outcome of a flow step that issues a code. DevCode
// carries the plaintext only in dev mode, bypassing delivery.
type FlowResult struct {
	Message string
	DevCode string
}

// TokenResult is the outcome of a flow step that issues a session.
type TokenResult struct {
	Token string
	User  *models.User
}

// AuthService sequences the registration and login flows:
// unregistered → email_pending → phone_pending → fully_verified, and
// the login 2FA round trip for fully verified users.
type AuthService struct {
	userRepo UserRepository
	attempts *AttemptService
	codes    *CodeService
	sessions *SessionService
	email    EmailSender
	sms      SMSSender
	logger   *slog.Logger
	devMode  bool
	now      func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo UserRepository,
	attempts *AttemptService,
	codes *CodeService,
	sessions *SessionService,
	email EmailSender,
	sms SMSSender,
	logger *slog.Logger,
	devMode bool,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		attempts: attempts,
		codes:    codes,
		sessions: sessions,
		email:    email,
		sms:      sms,
		logger:   logger,
		devMode:  devMode,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// StartRegistration creates or reuses the user row for the email,
// issues an email_verify code and delivers it. Fails with ErrConflict
// when the identity is already fully verified.
func (s *AuthService) StartRegistration(ctx context.Context, email, phoneNumber string) (*FlowResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up user", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		user, err = s.userRepo.Create(ctx, &models.User{Email: email, PhoneNumber: &phoneNumber})
		if err != nil {
			s.logger.Error("failed to create user", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	} else {
		if user.FullyVerified() {
			return nil, models.ErrConflict
		}
		user.PhoneNumber = &phoneNumber
		if user, err = s.userRepo.Update(ctx, user.ID, user); err != nil {
			s.logger.Error("failed to update user", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	s.logger.Info("registration started", slog.String("email", pkglogger.SanitizedEmail(email)))

	return s.issueAndDeliver(ctx, user, models.PurposeEmailVerify, "Email verification code sent.")
}

// VerifyEmail consumes an email_verify code, stamps email_verified_at
// and issues the phone_verify code via SMS.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code, origin string) (*FlowResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if user.PhoneNumber == nil || *user.PhoneNumber == "" {
		return nil, models.ErrBadRequest
	}

	if err := s.consumeGuarded(ctx, user, email, models.PurposeEmailVerify, code, origin); err != nil {
		return nil, err
	}

	if user.EmailVerifiedAt == nil {
		now := s.now()
		user.EmailVerifiedAt = &now
		if user, err = s.userRepo.Update(ctx, user.ID, user); err != nil {
			s.logger.Error("failed to stamp email verification", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	s.logger.Info("email verified", slog.String("user_id", user.ID))

	return s.issueAndDeliver(ctx, user, models.PurposePhoneVerify, "Phone verification code sent.")
}

// VerifyPhone consumes a phone_verify code, completes verification
// (two_factor_enabled) and issues the first session.
func (s *AuthService) VerifyPhone(ctx context.Context, email, code, origin string) (*TokenResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.consumeGuarded(ctx, user, email, models.PurposePhoneVerify, code, origin); err != nil {
		return nil, err
	}

	now := s.now()
	if user.PhoneVerifiedAt == nil {
		user.PhoneVerifiedAt = &now
	}
	user.TwoFactorEnabled = true
	if user, err = s.userRepo.Update(ctx, user.ID, user); err != nil {
		s.logger.Error("failed to stamp phone verification", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("registration completed", slog.String("user_id", user.ID))

	return &TokenResult{Token: token, User: user}, nil
}

// StartLogin issues a login_2fa code for a fully verified user. Fails
// with ErrNotEligible when email, phone or 2FA verification is missing.
func (s *AuthService) StartLogin(ctx context.Context, email string) (*FlowResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.EligibleForLogin() {
		return nil, models.ErrNotEligible
	}

	s.logger.Info("login started", slog.String("user_id", user.ID))

	return s.issueAndDeliver(ctx, user, models.PurposeLogin2FA, "Login 2FA code sent.")
}

// VerifyLogin consumes a login_2fa code and issues a session.
func (s *AuthService) VerifyLogin(ctx context.Context, email, code, origin string) (*TokenResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.consumeGuarded(ctx, user, email, models.PurposeLogin2FA, code, origin); err != nil {
		return nil, err
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login completed", slog.String("user_id", user.ID))

	return &TokenResult{Token: token, User: user}, nil
}

// Logout revokes the session matching the token. Always succeeds; an
// unknown or empty token is a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// consumeGuarded runs the shared rate-limit/consume/failure-record
// pattern for one verification step. On an invalid code the failure is
// recorded and the block re-checked, so the attempt that tips the
// counter over the threshold sees ErrRateLimited instead of
// ErrInvalidCode.
func (s *AuthService) consumeGuarded(ctx context.Context, user *models.User, email string, purpose models.CodePurpose, code, origin string) error {
	subject := models.SubjectKey(email, purpose, origin)

	if err := s.attempts.CheckNotBlocked(ctx, subject); err != nil {
		return err
	}

	if _, err := s.codes.ConsumeValid(ctx, user.ID, purpose, code); err != nil {
		if errors.Is(err, models.ErrInvalidCode) {
			if recErr := s.attempts.RecordFailure(ctx, subject); recErr != nil {
				return recErr
			}
			if blockErr := s.attempts.CheckNotBlocked(ctx, subject); blockErr != nil {
				return blockErr
			}
		}
		return err
	}

	return s.attempts.Clear(ctx, subject)
}

// issueAndDeliver persists a code and hands it to the purpose's
// delivery channel. Issuance commits before delivery is attempted, so
// a delivery failure leaves a valid code behind; the caller sees the
// delivery error. In dev mode delivery is skipped and the plaintext is
// returned in the result.
func (s *AuthService) issueAndDeliver(ctx context.Context, user *models.User, purpose models.CodePurpose, message string) (*FlowResult, error) {
	channel := models.ChannelSMS
	if purpose == models.PurposeEmailVerify {
		channel = models.ChannelEmail
	}

	_, plainCode, err := s.codes.Issue(ctx, user.ID, purpose, channel)
	if err != nil {
		return nil, err
	}

	if s.devMode {
		return &FlowResult{Message: message + " (dev mode)", DevCode: plainCode}, nil
	}

	switch channel {
	case models.ChannelEmail:
		err = s.email.SendVerificationCode(ctx, user.Email, plainCode)
	case models.ChannelSMS:
		err = s.sms.SendVerificationCode(ctx, *user.PhoneNumber, plainCode)
	}
	if err != nil {
		return nil, err
	}

	return &FlowResult{Message: message}, nil
}
