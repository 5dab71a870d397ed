package services

import (
	"context"
	"testing"
	"time"

	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/stretchr/testify/assert"
)

func newTestAttemptService(repo OtpAttemptRepository) *AttemptService {
	return NewAttemptService(repo, AttemptConfig{
		MaxAttempts:   3,
		Window:        15 * time.Minute,
		BlockDuration: 30 * time.Minute,
	}, newTestLogger())
}

func TestCheckNotBlockedUnknownSubject(t *testing.T) {
	service := newTestAttemptService(&mockOtpAttemptRepository{})

	err := service.CheckNotBlocked(context.Background(), "a@b.com::login_2fa::1.2.3.4")

	assert.NoError(t, err)
}

func TestCheckNotBlockedActiveBlock(t *testing.T) {
	blockedUntil := time.Now().UTC().Add(10 * time.Minute)
	repo := &mockOtpAttemptRepository{
		getBySubjectKeyFunc: func(ctx context.Context, subjectKey string) (*models.OtpAttempt, error) {
			return &models.OtpAttempt{
				SubjectKey:   subjectKey,
				FailCount:    3,
				BlockedUntil: &blockedUntil,
			}, nil
		},
	}
	service := newTestAttemptService(repo)

	err := service.CheckNotBlocked(context.Background(), "a@b.com::login_2fa::1.2.3.4")

	assert.ErrorIs(t, err, models.ErrRateLimited)
}

func TestCheckNotBlockedExpiredBlock(t *testing.T) {
	blockedUntil := time.Now().UTC().Add(-1 * time.Minute)
	repo := &mockOtpAttemptRepository{
		getBySubjectKeyFunc: func(ctx context.Context, subjectKey string) (*models.OtpAttempt, error) {
			return &models.OtpAttempt{
				SubjectKey:   subjectKey,
				FailCount:    3,
				BlockedUntil: &blockedUntil,
			}, nil
		},
	}
	service := newTestAttemptService(repo)

	err := service.CheckNotBlocked(context.Background(), "a@b.com::login_2fa::1.2.3.4")

	assert.NoError(t, err)
}

func TestRecordFailureCreatesCounter(t *testing.T) {
	var saved *models.OtpAttempt
	repo := &mockOtpAttemptRepository{
		upsertFunc: func(ctx context.Context, attempt *models.OtpAttempt) (*models.OtpAttempt, error) {
			saved = attempt
			return attempt, nil
		},
	}
	service := newTestAttemptService(repo)

	err := service.RecordFailure(context.Background(), "subject")

	assert.NoError(t, err)
	assert.NotNil(t, saved)
	assert.Equal(t, 1, saved.FailCount)
	assert.Nil(t, saved.BlockedUntil)
}

func TestRecordFailureBlocksAtLimit(t *testing.T) {
	now := time.Now().UTC()
	var saved *models.OtpAttempt
	repo := &mockOtpAttemptRepository{
		getBySubjectKeyFunc: func(ctx context.Context, subjectKey string) (*models.OtpAttempt, error) {
			return &models.OtpAttempt{
				SubjectKey:      subjectKey,
				FailCount:       2,
				WindowStartedAt: now.Add(-1 * time.Minute),
			}, nil
		},
		upsertFunc: func(ctx context.Context, attempt *models.OtpAttempt) (*models.OtpAttempt, error) {
			saved = attempt
			return attempt, nil
		},
	}
	service := newTestAttemptService(repo)

	err := service.RecordFailure(context.Background(), "subject")

	assert.NoError(t, err)
	assert.Equal(t, 3, saved.FailCount)
	assert.NotNil(t, saved.BlockedUntil)
	assert.True(t, saved.BlockedUntil.After(now))
}

func TestRecordFailureResetsElapsedWindow(t *testing.T) {
	now := time.Now().UTC()
	oldBlock := now.Add(-5 * time.Minute)
	var saved *models.OtpAttempt
	repo := &mockOtpAttemptRepository{
		getBySubjectKeyFunc: func(ctx context.Context, subjectKey string) (*models.OtpAttempt, error) {
			return &models.OtpAttempt{
				SubjectKey:      subjectKey,
				FailCount:       3,
				WindowStartedAt: now.Add(-1 * time.Hour),
				BlockedUntil:    &oldBlock,
			}, nil
		},
		upsertFunc: func(ctx context.Context, attempt *models.OtpAttempt) (*models.OtpAttempt, error) {
			saved = attempt
			return attempt, nil
		},
	}
	service := newTestAttemptService(repo)

	err := service.RecordFailure(context.Background(), "subject")

	assert.NoError(t, err)
	assert.Equal(t, 1, saved.FailCount)
	assert.Nil(t, saved.BlockedUntil)
	assert.WithinDuration(t, now, saved.WindowStartedAt, time.Minute)
}

func TestClearMissingCounterIsNoOp(t *testing.T) {
	service := newTestAttemptService(&mockOtpAttemptRepository{})

	err := service.Clear(context.Background(), "subject")

	assert.NoError(t, err)
}
