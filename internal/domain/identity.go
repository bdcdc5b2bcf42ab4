package domain

import "time"

// OAuthProvider identifies a federated identity provider.
type OAuthProvider string

const (
	ProviderGoogle OAuthProvider = "google"
	ProviderApple  OAuthProvider = "apple"
)

// Valid reports whether the provider is supported.
func (p OAuthProvider) Valid() bool {
	return p == ProviderGoogle || p == ProviderApple
}

// Identity represents an OAuth provider connection for a user.
// (provider, provider_user_id) is globally unique: a provider subject
// resolves to at most one user.
type Identity struct {
	ID             string        `json:"id" db:"id"`
	UserID         string        `json:"user_id" db:"user_id"`
	Provider       OAuthProvider `json:"provider" db:"provider"`
	ProviderUserID string        `json:"provider_user_id" db:"provider_user_id"`
	Email          string        `json:"email" db:"email"` // as reported by the provider
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}
