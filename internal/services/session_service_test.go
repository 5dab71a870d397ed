package services

import (
	"context"
	"testing"
	"time"

	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionFixture(t *testing.T) (*SessionService, *memStore, *models.User) {
	t.Helper()
	store := newMemStore()
	phone := "+15551234567"
	user, err := store.Create(context.Background(), &models.User{Email: "sessions@example.com", PhoneNumber: &phone})
	require.NoError(t, err)

	service := NewSessionService(memSessionRepo{store}, store, newTestLogger(), 168*time.Hour)
	return service, store, user
}

func TestSessionRoundTrip(t *testing.T) {
	service, _, user := newSessionFixture(t)
	ctx := context.Background()

	token, err := service.Issue(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	resolved, err := service.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Equal(t, user.Email, resolved.Email)
}

func TestValidateEmptyToken(t *testing.T) {
	service, _, _ := newSessionFixture(t)

	_, err := service.Validate(context.Background(), "")

	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestValidateUnknownToken(t *testing.T) {
	service, _, _ := newSessionFixture(t)

	_, err := service.Validate(context.Background(), "not-a-real-token")

	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestValidateExpiredSession(t *testing.T) {
	service, _, user := newSessionFixture(t)
	ctx := context.Background()

	token, err := service.Issue(ctx, user.ID)
	require.NoError(t, err)

	service.now = func() time.Time { return time.Now().UTC().Add(169 * time.Hour) }

	_, err = service.Validate(ctx, token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestValidateRevokedSession(t *testing.T) {
	service, _, user := newSessionFixture(t)
	ctx := context.Background()

	token, err := service.Issue(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, service.Revoke(ctx, token))

	_, err = service.Validate(ctx, token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestRevokeIsIdempotent(t *testing.T) {
	service, _, user := newSessionFixture(t)
	ctx := context.Background()

	token, err := service.Issue(ctx, user.ID)
	require.NoError(t, err)

	assert.NoError(t, service.Revoke(ctx, token))
	assert.NoError(t, service.Revoke(ctx, token))
}

func TestRevokeUnknownTokenIsNoOp(t *testing.T) {
	service, _, _ := newSessionFixture(t)

	assert.NoError(t, service.Revoke(context.Background(), "never-issued"))
	assert.NoError(t, service.Revoke(context.Background(), ""))
}

func TestValidateSessionForDeletedUser(t *testing.T) {
	service, store, user := newSessionFixture(t)
	ctx := context.Background()

	token, err := service.Issue(ctx, user.ID)
	require.NoError(t, err)

	store.mu.Lock()
	delete(store.users, user.Email)
	store.mu.Unlock()

	_, err = service.Validate(ctx, token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}
