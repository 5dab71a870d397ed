package models

import (
	"time"
)

// CodePurpose tags which flow step a one-time code belongs to.
type CodePurpose string

const (
	PurposeEmailVerify CodePurpose = "email_verify"
	PurposePhoneVerify CodePurpose = "phone_verify"
	PurposeLogin2FA    CodePurpose = "login_2fa"
)

// CodeChannel is the delivery channel a code was issued for.
type CodeChannel string

const (
	ChannelEmail CodeChannel = "email"
	ChannelSMS   CodeChannel = "sms"
)

// AuthCode is a one-time verification code issuance record. Only the
// SHA-256 digest of the code is ever stored. Rows are never deleted;
// consumed_at is the audit trail.
type AuthCode struct {
	ID         string
	UserID     string
	Purpose    CodePurpose
	Channel    CodeChannel
	CodeHash   string `json:"-"` // Never expose code hash
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// IsExpired checks if the code has expired at the given instant.
func (c *AuthCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsConsumed checks if the code has already been used.
func (c *AuthCode) IsConsumed() bool {
	return c.ConsumedAt != nil
}
