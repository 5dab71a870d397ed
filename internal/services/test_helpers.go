package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/colemurrin/pricewatch/internal/scrape"
	"github.com/google/uuid"
)

// newTestLogger returns a logger that discards output
func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Function-field mocks ---
// Each mock delegates to an optional func field; unset fields return
// ErrNotFound or a zero value so tests only stub what they exercise.

type mockUserRepository struct {
	getByIDFunc    func(ctx context.Context, id string) (*models.User, error)
	getByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	listFunc       func(ctx context.Context, limit, offset int) ([]*models.User, error)
	createFunc     func(ctx context.Context, user *models.User) (*models.User, error)
	updateFunc     func(ctx context.Context, id string, user *models.User) (*models.User, error)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.getByEmailFunc != nil {
		return m.getByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *mockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return user, nil
}

func (m *mockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, user)
	}
	return user, nil
}

type mockAuthCodeRepository struct {
	createFunc          func(ctx context.Context, userID string, purpose models.CodePurpose, channel models.CodeChannel, codeHash string, expiresAt time.Time) (*models.AuthCode, error)
	getLatestActiveFunc func(ctx context.Context, userID string, purpose models.CodePurpose, now time.Time) (*models.AuthCode, error)
	markConsumedFunc    func(ctx context.Context, id string, now time.Time) error
}

func (m *mockAuthCodeRepository) Create(ctx context.Context, userID string, purpose models.CodePurpose, channel models.CodeChannel, codeHash string, expiresAt time.Time) (*models.AuthCode, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID, purpose, channel, codeHash, expiresAt)
	}
	return &models.AuthCode{
		ID:        uuid.New().String(),
		UserID:    userID,
		Purpose:   purpose,
		Channel:   channel,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
	}, nil
}

func (m *mockAuthCodeRepository) GetLatestActive(ctx context.Context, userID string, purpose models.CodePurpose, now time.Time) (*models.AuthCode, error) {
	if m.getLatestActiveFunc != nil {
		return m.getLatestActiveFunc(ctx, userID, purpose, now)
	}
	return nil, models.ErrNotFound
}

func (m *mockAuthCodeRepository) MarkConsumed(ctx context.Context, id string, now time.Time) error {
	if m.markConsumedFunc != nil {
		return m.markConsumedFunc(ctx, id, now)
	}
	return nil
}

type mockAuthSessionRepository struct {
	createFunc         func(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.AuthSession, error)
	getByTokenHashFunc func(ctx context.Context, tokenHash string) (*models.AuthSession, error)
	revokeFunc         func(ctx context.Context, id string, now time.Time) error
	cleanupFunc        func(ctx context.Context) (int64, error)
}

func (m *mockAuthSessionRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.AuthSession, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID, tokenHash, expiresAt)
	}
	return &models.AuthSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}, nil
}

func (m *mockAuthSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.AuthSession, error) {
	if m.getByTokenHashFunc != nil {
		return m.getByTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *mockAuthSessionRepository) Revoke(ctx context.Context, id string, now time.Time) error {
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, id, now)
	}
	return nil
}

func (m *mockAuthSessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	if m.cleanupFunc != nil {
		return m.cleanupFunc(ctx)
	}
	return 0, nil
}

type mockOtpAttemptRepository struct {
	getBySubjectKeyFunc    func(ctx context.Context, subjectKey string) (*models.OtpAttempt, error)
	upsertFunc             func(ctx context.Context, attempt *models.OtpAttempt) (*models.OtpAttempt, error)
	deleteBySubjectKeyFunc func(ctx context.Context, subjectKey string) error
	cleanupStaleFunc       func(ctx context.Context, olderThan time.Duration) (int64, error)
}

func (m *mockOtpAttemptRepository) GetBySubjectKey(ctx context.Context, subjectKey string) (*models.OtpAttempt, error) {
	if m.getBySubjectKeyFunc != nil {
		return m.getBySubjectKeyFunc(ctx, subjectKey)
	}
	return nil, models.ErrNotFound
}

func (m *mockOtpAttemptRepository) Upsert(ctx context.Context, attempt *models.OtpAttempt) (*models.OtpAttempt, error) {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, attempt)
	}
	return attempt, nil
}

func (m *mockOtpAttemptRepository) DeleteBySubjectKey(ctx context.Context, subjectKey string) error {
	if m.deleteBySubjectKeyFunc != nil {
		return m.deleteBySubjectKeyFunc(ctx, subjectKey)
	}
	return nil
}

func (m *mockOtpAttemptRepository) CleanupStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if m.cleanupStaleFunc != nil {
		return m.cleanupStaleFunc(ctx, olderThan)
	}
	return 0, nil
}

type mockWatchlistRepository struct {
	createFunc      func(ctx context.Context, item *models.WatchlistItem) (*models.WatchlistItem, error)
	getByIDFunc     func(ctx context.Context, id string) (*models.WatchlistItem, error)
	listByUserFunc  func(ctx context.Context, userID string) ([]*models.WatchlistItem, error)
	listActiveFunc  func(ctx context.Context) ([]*models.WatchlistItem, error)
	updateFunc      func(ctx context.Context, id string, item *models.WatchlistItem) (*models.WatchlistItem, error)
	recordCheckFunc func(ctx context.Context, id string, price *float64, currency *string, checkedAt time.Time) error
	deleteFunc      func(ctx context.Context, id string) error
}

func (m *mockWatchlistRepository) Create(ctx context.Context, item *models.WatchlistItem) (*models.WatchlistItem, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, item)
	}
	item.ID = uuid.New().String()
	return item, nil
}

func (m *mockWatchlistRepository) GetByID(ctx context.Context, id string) (*models.WatchlistItem, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *mockWatchlistRepository) ListByUser(ctx context.Context, userID string) ([]*models.WatchlistItem, error) {
	if m.listByUserFunc != nil {
		return m.listByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockWatchlistRepository) ListActive(ctx context.Context) ([]*models.WatchlistItem, error) {
	if m.listActiveFunc != nil {
		return m.listActiveFunc(ctx)
	}
	return nil, nil
}

func (m *mockWatchlistRepository) Update(ctx context.Context, id string, item *models.WatchlistItem) (*models.WatchlistItem, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, item)
	}
	return item, nil
}

func (m *mockWatchlistRepository) RecordCheck(ctx context.Context, id string, price *float64, currency *string, checkedAt time.Time) error {
	if m.recordCheckFunc != nil {
		return m.recordCheckFunc(ctx, id, price, currency, checkedAt)
	}
	return nil
}

func (m *mockWatchlistRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockPriceCheckRepository struct {
	createFunc     func(ctx context.Context, run *models.PriceCheckRun) (*models.PriceCheckRun, error)
	listByItemFunc func(ctx context.Context, itemID string) ([]*models.PriceCheckRun, error)
}

func (m *mockPriceCheckRepository) Create(ctx context.Context, run *models.PriceCheckRun) (*models.PriceCheckRun, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, run)
	}
	run.ID = uuid.New().String()
	return run, nil
}

func (m *mockPriceCheckRepository) ListByItem(ctx context.Context, itemID string) ([]*models.PriceCheckRun, error) {
	if m.listByItemFunc != nil {
		return m.listByItemFunc(ctx, itemID)
	}
	return nil, nil
}

type mockEmailSender struct {
	sendCodeFunc  func(ctx context.Context, email, code string) error
	sendAlertFunc func(ctx context.Context, email, productURL string, price, threshold float64) error
}

func (m *mockEmailSender) SendVerificationCode(ctx context.Context, email, code string) error {
	if m.sendCodeFunc != nil {
		return m.sendCodeFunc(ctx, email, code)
	}
	return nil
}

func (m *mockEmailSender) SendPriceAlert(ctx context.Context, email, productURL string, price, threshold float64) error {
	if m.sendAlertFunc != nil {
		return m.sendAlertFunc(ctx, email, productURL, price, threshold)
	}
	return nil
}

type mockSMSSender struct {
	sendCodeFunc func(ctx context.Context, phoneNumber, code string) error
}

func (m *mockSMSSender) SendVerificationCode(ctx context.Context, phoneNumber, code string) error {
	if m.sendCodeFunc != nil {
		return m.sendCodeFunc(ctx, phoneNumber, code)
	}
	return nil
}

type mockPriceScraper struct {
	fetchPriceFunc func(ctx context.Context, productURL string) (*scrape.Price, error)
}

func (m *mockPriceScraper) FetchPrice(ctx context.Context, productURL string) (*scrape.Price, error) {
	if m.fetchPriceFunc != nil {
		return m.fetchPriceFunc(ctx, productURL)
	}
	return nil, models.ErrNotFound
}

// --- In-memory store ---
// memStore backs the full-flow tests with map-based implementations of
// the four auth repositories so a scenario can run end to end without a
// database.

type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	codes    []*models.AuthCode
	sessions map[string]*models.AuthSession
	attempts map[string]*models.OtpAttempt
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*models.User),
		sessions: make(map[string]*models.AuthSession),
		attempts: make(map[string]*models.OtpAttempt),
	}
}

func (s *memStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, models.ErrNotFound
}

func (s *memStore) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		copied := *u
		out = append(out, &copied)
	}
	return out, nil
}

func (s *memStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return nil, models.ErrConflict
	}
	copied := *user
	copied.ID = uuid.New().String()
	s.users[copied.Email] = &copied
	result := copied
	return &result, nil
}

func (s *memStore) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, u := range s.users {
		if u.ID == id {
			copied := *user
			copied.ID = id
			s.users[email] = &copied
			result := copied
			return &result, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *memStore) CreateCode(ctx context.Context, userID string, purpose models.CodePurpose, channel models.CodeChannel, codeHash string, expiresAt time.Time) (*models.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := &models.AuthCode{
		ID:        uuid.New().String(),
		UserID:    userID,
		Purpose:   purpose,
		Channel:   channel,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	s.codes = append(s.codes, code)
	copied := *code
	return &copied, nil
}

func (s *memStore) GetLatestActive(ctx context.Context, userID string, purpose models.CodePurpose, now time.Time) (*models.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.AuthCode
	for _, c := range s.codes {
		if c.UserID != userID || c.Purpose != purpose || c.ConsumedAt != nil || c.ExpiresAt.Before(now) {
			continue
		}
		if latest == nil || !c.CreatedAt.Before(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (s *memStore) MarkConsumed(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.ID == id && c.ConsumedAt == nil {
			consumedAt := now
			c.ConsumedAt = &consumedAt
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *memStore) CreateSession(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := &models.AuthSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[tokenHash] = session
	copied := *session
	return &copied, nil
}

func (s *memStore) GetByTokenHash(ctx context.Context, tokenHash string) (*models.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[tokenHash]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, models.ErrNotFound
}

func (s *memStore) Revoke(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.ID == id {
			if session.RevokedAt != nil {
				return models.ErrNotFound
			}
			revokedAt := now
			session.RevokedAt = &revokedAt
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *memStore) CleanupExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *memStore) GetBySubjectKey(ctx context.Context, subjectKey string) (*models.OtpAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.attempts[subjectKey]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, models.ErrNotFound
}

func (s *memStore) Upsert(ctx context.Context, attempt *models.OtpAttempt) (*models.OtpAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *attempt
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}
	s.attempts[copied.SubjectKey] = &copied
	result := copied
	return &result, nil
}

func (s *memStore) DeleteBySubjectKey(ctx context.Context, subjectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, subjectKey)
	return nil
}

func (s *memStore) CleanupStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

// codeRepoAdapter and related adapters split the memStore into the
// per-interface views the services expect.

type memCodeRepo struct{ store *memStore }

func (r memCodeRepo) Create(ctx context.Context, userID string, purpose models.CodePurpose, channel models.CodeChannel, codeHash string, expiresAt time.Time) (*models.AuthCode, error) {
	return r.store.CreateCode(ctx, userID, purpose, channel, codeHash, expiresAt)
}

func (r memCodeRepo) GetLatestActive(ctx context.Context, userID string, purpose models.CodePurpose, now time.Time) (*models.AuthCode, error) {
	return r.store.GetLatestActive(ctx, userID, purpose, now)
}

func (r memCodeRepo) MarkConsumed(ctx context.Context, id string, now time.Time) error {
	return r.store.MarkConsumed(ctx, id, now)
}

type memSessionRepo struct{ store *memStore }

func (r memSessionRepo) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.AuthSession, error) {
	return r.store.CreateSession(ctx, userID, tokenHash, expiresAt)
}

func (r memSessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.AuthSession, error) {
	return r.store.GetByTokenHash(ctx, tokenHash)
}

func (r memSessionRepo) Revoke(ctx context.Context, id string, now time.Time) error {
	return r.store.Revoke(ctx, id, now)
}

func (r memSessionRepo) CleanupExpired(ctx context.Context) (int64, error) {
	return r.store.CleanupExpired(ctx)
}
