package domain

import "time"

// MagicLinkToken represents a single-use email sign-in token. Only the
// SHA-256 hash of the secret is stored; the raw value exists solely in
// the email sent to the user.
type MagicLinkToken struct {
	Email     string    `json:"email" db:"email"` // normalized; the user may not exist yet
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Used      bool      `json:"used" db:"used"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Redeemable reports whether the token is still unused and unexpired.
func (t MagicLinkToken) Redeemable(now time.Time) bool {
	return !t.Used && t.ExpiresAt.After(now)
}
