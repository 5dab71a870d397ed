package models

import (
	"fmt"
	"strings"
	"time"
)

// OtpAttempt is a sliding-window failure counter for OTP verification,
// keyed by a composite subject (identity + purpose + origin). Created
// lazily on first failure, deleted entirely on success.
type OtpAttempt struct {
	ID              string
	SubjectKey      string
	FailCount       int
	WindowStartedAt time.Time
	BlockedUntil    *time.Time
	UpdatedAt       time.Time
}

// IsBlocked reports whether the subject is blocked at the given instant.
func (a *OtpAttempt) IsBlocked(now time.Time) bool {
	return a.BlockedUntil != nil && a.BlockedUntil.After(now)
}

// WindowElapsed reports whether the counting window has expired.
func (a *OtpAttempt) WindowElapsed(now time.Time, window time.Duration) bool {
	return now.After(a.WindowStartedAt.Add(window))
}

// SubjectKey builds the composite rate-limit key for (email, purpose,
// origin). All parts are lowercased so lookups are case-insensitive.
func SubjectKey(email string, purpose CodePurpose, origin string) string {
	return fmt.Sprintf("%s::%s::%s",
		strings.ToLower(strings.TrimSpace(email)),
		strings.ToLower(string(purpose)),
		strings.ToLower(strings.TrimSpace(origin)),
	)
}
