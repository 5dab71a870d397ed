package models

import (
	"time"
)

type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	PhoneNumber      *string    `json:"phone_number,omitempty"`
	EmailVerifiedAt  *time.Time `json:"email_verified_at,omitempty"`
	PhoneVerifiedAt  *time.Time `json:"phone_verified_at,omitempty"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// FullyVerified reports whether both verification steps completed and
// 2FA is enabled. two_factor_enabled is only ever set once both
// timestamps are stamped.
func (u *User) FullyVerified() bool {
	return u.EmailVerifiedAt != nil && u.PhoneVerifiedAt != nil && u.TwoFactorEnabled
}

// EligibleForLogin reports whether the user can start a 2FA login.
func (u *User) EligibleForLogin() bool {
	return u.EmailVerifiedAt != nil && u.TwoFactorEnabled && u.PhoneNumber != nil && *u.PhoneNumber != ""
}
