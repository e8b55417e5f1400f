package domain

import "time"

// EmailVerificationToken is a single-use token mailed out after
// registration (and on demand via the public resend endpoint).
type EmailVerificationToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Consumable reports whether the token is still valid for redemption.
func (t *EmailVerificationToken) Consumable(now time.Time) bool {
	return t.UsedAt == nil && t.ExpiresAt.After(now)
}
