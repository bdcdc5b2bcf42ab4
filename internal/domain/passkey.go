package domain

import "time"

// Passkey represents a registered WebAuthn credential.
type Passkey struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	CredentialID string     `json:"credential_id" db:"credential_id"` // base64url key presented by the client
	PublicKey    []byte     `json:"-" db:"public_key"`
	SignCount    int64      `json:"sign_count" db:"sign_count"`
	Transports   []string   `json:"transports" db:"transports"`
	DeviceName   *string    `json:"device_name" db:"device_name"`
	LastUsedAt   *time.Time `json:"last_used_at" db:"last_used_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// VerifySignCount reports whether an incoming signature counter is
// acceptable. The counter must be strictly increasing; anything else
// indicates a cloned credential replaying an old assertion.
func (p Passkey) VerifySignCount(incoming int64) bool {
	return incoming > p.SignCount
}
