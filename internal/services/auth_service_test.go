package services

import (
	"context"
	"testing"
	"time"

	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flowFixture struct {
	service  *AuthService
	sessions *SessionService
	store    *memStore
	email    *mockEmailSender
	sms      *mockSMSSender
}

func newFlowFixture(t *testing.T, devMode bool, maxAttempts int) *flowFixture {
	t.Helper()
	store := newMemStore()
	logger := newTestLogger()

	attempts := NewAttemptService(store, AttemptConfig{
		MaxAttempts:   maxAttempts,
		Window:        15 * time.Minute,
		BlockDuration: 30 * time.Minute,
	}, logger)
	codes := NewCodeService(memCodeRepo{store}, logger, 10*time.Minute)
	sessions := NewSessionService(memSessionRepo{store}, store, logger, 168*time.Hour)
	email := &mockEmailSender{}
	sms := &mockSMSSender{}

	return &flowFixture{
		service:  NewAuthService(store, attempts, codes, sessions, email, sms, logger, devMode),
		sessions: sessions,
		store:    store,
		email:    email,
		sms:      sms,
	}
}

// registerVerified drives the whole registration flow in dev mode and
// returns the verified user's session token.
func registerVerified(t *testing.T, f *flowFixture, email, phone string) string {
	t.Helper()
	ctx := context.Background()

	reg, err := f.service.StartRegistration(ctx, email, phone)
	require.NoError(t, err)
	require.NotEmpty(t, reg.DevCode)

	emailStep, err := f.service.VerifyEmail(ctx, email, reg.DevCode, "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, emailStep.DevCode)

	phoneStep, err := f.service.VerifyPhone(ctx, email, emailStep.DevCode, "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, phoneStep.Token)

	return phoneStep.Token
}

func TestRegistrationFlowInDevMode(t *testing.T) {
	f := newFlowFixture(t, true, 5)
	ctx := context.Background()

	token := registerVerified(t, f, "new@example.com", "+15551234567")

	user, err := f.sessions.Validate(ctx, token)
	require.NoError(t, err)
	assert.True(t, user.FullyVerified())
	assert.True(t, user.TwoFactorEnabled)
	assert.NotNil(t, user.EmailVerifiedAt)
	assert.NotNil(t, user.PhoneVerifiedAt)
}

func TestStartRegistrationFullyVerifiedConflict(t *testing.T) {
	f := newFlowFixture(t, true, 5)
	ctx := context.Background()

	registerVerified(t, f, "done@example.com", "+15551234567")

	_, err := f.service.StartRegistration(ctx, "done@example.com", "+15559876543")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestStartRegistrationResumesPartialSignup(t *testing.T) {
	f := newFlowFixture(t, true, 5)
	ctx := context.Background()

	first, err := f.service.StartRegistration(ctx, "partial@example.com", "+15551111111")
	require.NoError(t, err)

	// Re-registering before verification restarts with the new phone
	second, err := f.service.StartRegistration(ctx, "partial@example.com", "+15552222222")
	require.NoError(t, err)
	assert.NotEmpty(t, second.DevCode)

	user, err := f.store.GetByEmail(ctx, "partial@example.com")
	require.NoError(t, err)
	require.NotNil(t, user.PhoneNumber)
	assert.Equal(t, "+15552222222", *user.PhoneNumber)

	// The earlier code was superseded by the re-registration
	_, err = f.service.VerifyEmail(ctx, "partial@example.com", first.DevCode, "10.0.0.1")
	if first.DevCode != second.DevCode {
		assert.ErrorIs(t, err, models.ErrInvalidCode)
	}
}

func TestVerifyEmailUnknownUser(t *testing.T) {
	f := newFlowFixture(t, true, 5)

	_, err := f.service.VerifyEmail(context.Background(), "ghost@example.com", "123456", "10.0.0.1")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestVerifyEmailWithoutPhoneNumber(t *testing.T) {
	f := newFlowFixture(t, true, 5)
	ctx := context.Background()

	_, err := f.store.Create(ctx, &models.User{Email: "nophone@example.com"})
	require.NoError(t, err)

	_, err = f.service.VerifyEmail(ctx, "nophone@example.com", "123456", "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestStartLoginRequiresFullVerification(t *testing.T) {
	f := newFlowFixture(t, true, 5)
	ctx := context.Background()

	_, err := f.service.StartRegistration(ctx, "half@example.com", "+15551234567")
	require.NoError(t, err)

	_, err = f.service.StartLogin(ctx, "half@example.com")
	assert.ErrorIs(t, err, models.ErrNotEligible)
}

func TestLoginFlowAndLogout(t *testing.T) {
	f := newFlowFixture(t, true, 5)
	ctx := context.Background()

	registerVerified(t, f, "login@example.com", "+15551234567")

	start, err := f.service.StartLogin(ctx, "login@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, start.DevCode)

	result, err := f.service.VerifyLogin(ctx, "login@example.com", start.DevCode, "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)

	_, err = f.sessions.Validate(ctx, result.Token)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, result.Token))

	_, err = f.sessions.Validate(ctx, result.Token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestLogoutUnknownTokenIsNoOp(t *testing.T) {
	f := newFlowFixture(t, true, 5)

	assert.NoError(t, f.service.Logout(context.Background(), "never-issued"))
}

func TestRepeatedWrongCodesBlockSubject(t *testing.T) {
	f := newFlowFixture(t, true, 2)
	ctx := context.Background()

	reg, err := f.service.StartRegistration(ctx, "bruteforce@example.com", "+15551234567")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == reg.DevCode {
		wrong = "000001"
	}

	// First failure is reported as an invalid code
	_, err = f.service.VerifyEmail(ctx, "bruteforce@example.com", wrong, "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrInvalidCode)

	// Second failure reaches the limit and tips over into a block
	_, err = f.service.VerifyEmail(ctx, "bruteforce@example.com", wrong, "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrRateLimited)

	// Even the correct code is rejected while the block holds
	_, err = f.service.VerifyEmail(ctx, "bruteforce@example.com", reg.DevCode, "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrRateLimited)
}

func TestBlockIsScopedToOrigin(t *testing.T) {
	f := newFlowFixture(t, true, 2)
	ctx := context.Background()

	reg, err := f.service.StartRegistration(ctx, "scoped@example.com", "+15551234567")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == reg.DevCode {
		wrong = "000001"
	}

	_, err = f.service.VerifyEmail(ctx, "scoped@example.com", wrong, "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrInvalidCode)
	_, err = f.service.VerifyEmail(ctx, "scoped@example.com", wrong, "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrRateLimited)

	// A different origin has its own counter and still succeeds
	_, err = f.service.VerifyEmail(ctx, "scoped@example.com", reg.DevCode, "192.168.1.50")
	assert.NoError(t, err)
}

func TestSuccessfulVerifyClearsCounter(t *testing.T) {
	f := newFlowFixture(t, true, 3)
	ctx := context.Background()

	reg, err := f.service.StartRegistration(ctx, "clears@example.com", "+15551234567")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == reg.DevCode {
		wrong = "000001"
	}

	_, err = f.service.VerifyEmail(ctx, "clears@example.com", wrong, "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrInvalidCode)

	_, err = f.service.VerifyEmail(ctx, "clears@example.com", reg.DevCode, "10.0.0.1")
	require.NoError(t, err)

	subject := models.SubjectKey("clears@example.com", models.PurposeEmailVerify, "10.0.0.1")
	_, err = f.store.GetBySubjectKey(ctx, subject)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeliveryFailureLeavesCodeIssued(t *testing.T) {
	f := newFlowFixture(t, false, 5)
	f.email.sendCodeFunc = func(ctx context.Context, email, code string) error {
		return models.ErrDeliveryFailed
	}
	ctx := context.Background()

	_, err := f.service.StartRegistration(ctx, "undelivered@example.com", "+15551234567")
	assert.ErrorIs(t, err, models.ErrDeliveryFailed)

	// Issuance committed before the delivery attempt
	user, err := f.store.GetByEmail(ctx, "undelivered@example.com")
	require.NoError(t, err)
	_, err = f.store.GetLatestActive(ctx, user.ID, models.PurposeEmailVerify, time.Now().UTC())
	assert.NoError(t, err)
}

func TestProductionModeDeliversInsteadOfReturningCode(t *testing.T) {
	f := newFlowFixture(t, false, 5)
	var delivered string
	f.email.sendCodeFunc = func(ctx context.Context, email, code string) error {
		delivered = code
		return nil
	}
	ctx := context.Background()

	result, err := f.service.StartRegistration(ctx, "prod@example.com", "+15551234567")
	require.NoError(t, err)
	assert.Empty(t, result.DevCode)
	assert.NotEmpty(t, delivered)
}

func TestPhoneVerifyCodeGoesOutViaSMS(t *testing.T) {
	f := newFlowFixture(t, false, 5)
	var smsTo string
	f.sms.sendCodeFunc = func(ctx context.Context, phoneNumber, code string) error {
		smsTo = phoneNumber
		return nil
	}
	var emailCode string
	f.email.sendCodeFunc = func(ctx context.Context, email, code string) error {
		emailCode = code
		return nil
	}
	ctx := context.Background()

	_, err := f.service.StartRegistration(ctx, "channels@example.com", "+15551234567")
	require.NoError(t, err)

	_, err = f.service.VerifyEmail(ctx, "channels@example.com", emailCode, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", smsTo)
}
