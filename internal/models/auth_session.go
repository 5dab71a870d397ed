package models

import (
	"time"
)

// AuthSession is a bearer credential record. The plaintext token is
// returned exactly once at issuance; only its digest is persisted.
// Sessions are never refreshed in place, only revoked and reissued.
type AuthSession struct {
	ID        string
	UserID    string
	TokenHash string `json:"-"` // Never expose token hash
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// IsValid reports whether the session is usable at the given instant:
// not revoked and not expired.
func (s *AuthSession) IsValid(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
