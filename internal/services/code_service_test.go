package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/colemurrin/pricewatch/internal/auth"
	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueStoresDigestNotPlaintext(t *testing.T) {
	var storedHash string
	repo := &mockAuthCodeRepository{
		createFunc: func(ctx context.Context, userID string, purpose models.CodePurpose, channel models.CodeChannel, codeHash string, expiresAt time.Time) (*models.AuthCode, error) {
			storedHash = codeHash
			return &models.AuthCode{ID: "code-1", UserID: userID, Purpose: purpose, CodeHash: codeHash, ExpiresAt: expiresAt}, nil
		},
	}
	service := NewCodeService(repo, newTestLogger(), 10*time.Minute)

	code, plain, err := service.Issue(context.Background(), "user-1", models.PurposeEmailVerify, models.ChannelEmail)

	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), plain)
	assert.Equal(t, auth.HashSecret(plain), storedHash)
	assert.NotEqual(t, plain, storedHash)
	assert.WithinDuration(t, time.Now().UTC().Add(10*time.Minute), code.ExpiresAt, time.Minute)
}

func TestConsumeValidMatchingCode(t *testing.T) {
	consumed := false
	repo := &mockAuthCodeRepository{
		getLatestActiveFunc: func(ctx context.Context, userID string, purpose models.CodePurpose, now time.Time) (*models.AuthCode, error) {
			return &models.AuthCode{ID: "code-1", UserID: userID, Purpose: purpose, CodeHash: auth.HashSecret("123456")}, nil
		},
		markConsumedFunc: func(ctx context.Context, id string, now time.Time) error {
			consumed = true
			return nil
		},
	}
	service := NewCodeService(repo, newTestLogger(), 10*time.Minute)

	code, err := service.ConsumeValid(context.Background(), "user-1", models.PurposeEmailVerify, "123456")

	require.NoError(t, err)
	assert.True(t, consumed)
	assert.NotNil(t, code.ConsumedAt)
}

func TestConsumeWrongCode(t *testing.T) {
	repo := &mockAuthCodeRepository{
		getLatestActiveFunc: func(ctx context.Context, userID string, purpose models.CodePurpose, now time.Time) (*models.AuthCode, error) {
			return &models.AuthCode{ID: "code-1", CodeHash: auth.HashSecret("123456")}, nil
		},
	}
	service := NewCodeService(repo, newTestLogger(), 10*time.Minute)

	_, err := service.ConsumeValid(context.Background(), "user-1", models.PurposeEmailVerify, "654321")

	assert.ErrorIs(t, err, models.ErrInvalidCode)
}

func TestConsumeWithoutActiveCode(t *testing.T) {
	service := NewCodeService(&mockAuthCodeRepository{}, newTestLogger(), 10*time.Minute)

	_, err := service.ConsumeValid(context.Background(), "user-1", models.PurposeLogin2FA, "123456")

	assert.ErrorIs(t, err, models.ErrInvalidCode)
}

func TestConsumeLostRaceReportsInvalid(t *testing.T) {
	repo := &mockAuthCodeRepository{
		getLatestActiveFunc: func(ctx context.Context, userID string, purpose models.CodePurpose, now time.Time) (*models.AuthCode, error) {
			return &models.AuthCode{ID: "code-1", CodeHash: auth.HashSecret("123456")}, nil
		},
		markConsumedFunc: func(ctx context.Context, id string, now time.Time) error {
			return models.ErrNotFound
		},
	}
	service := NewCodeService(repo, newTestLogger(), 10*time.Minute)

	_, err := service.ConsumeValid(context.Background(), "user-1", models.PurposeEmailVerify, "123456")

	assert.ErrorIs(t, err, models.ErrInvalidCode)
}

func TestNewerCodeSupersedesOlder(t *testing.T) {
	store := newMemStore()
	service := NewCodeService(memCodeRepo{store}, newTestLogger(), 10*time.Minute)
	ctx := context.Background()

	_, firstPlain, err := service.Issue(ctx, "user-1", models.PurposePhoneVerify, models.ChannelSMS)
	require.NoError(t, err)
	_, secondPlain, err := service.Issue(ctx, "user-1", models.PurposePhoneVerify, models.ChannelSMS)
	require.NoError(t, err)

	if firstPlain == secondPlain {
		t.Skip("generated codes collided; supersession indistinguishable")
	}

	// The older code is stale even though it has not expired
	_, err = service.ConsumeValid(ctx, "user-1", models.PurposePhoneVerify, firstPlain)
	assert.ErrorIs(t, err, models.ErrInvalidCode)

	_, err = service.ConsumeValid(ctx, "user-1", models.PurposePhoneVerify, secondPlain)
	assert.NoError(t, err)
}

func TestConsumedCodeCannotBeReused(t *testing.T) {
	store := newMemStore()
	service := NewCodeService(memCodeRepo{store}, newTestLogger(), 10*time.Minute)
	ctx := context.Background()

	_, plain, err := service.Issue(ctx, "user-1", models.PurposeEmailVerify, models.ChannelEmail)
	require.NoError(t, err)

	_, err = service.ConsumeValid(ctx, "user-1", models.PurposeEmailVerify, plain)
	require.NoError(t, err)

	_, err = service.ConsumeValid(ctx, "user-1", models.PurposeEmailVerify, plain)
	assert.ErrorIs(t, err, models.ErrInvalidCode)
}

func TestExpiredCodeIsNotConsumable(t *testing.T) {
	store := newMemStore()
	service := NewCodeService(memCodeRepo{store}, newTestLogger(), 10*time.Minute)
	ctx := context.Background()

	_, plain, err := service.Issue(ctx, "user-1", models.PurposeEmailVerify, models.ChannelEmail)
	require.NoError(t, err)

	// Move the service clock past the TTL
	service.now = func() time.Time { return time.Now().UTC().Add(11 * time.Minute) }

	_, err = service.ConsumeValid(ctx, "user-1", models.PurposeEmailVerify, plain)
	assert.ErrorIs(t, err, models.ErrInvalidCode)
}
