package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nimbusnote/auth-service/internal/domain"
)

// MagicLinkService issues and redeems single-use email sign-in tokens.
type MagicLinkService interface {
	// Request validates and normalizes the email, persists a hashed
	// single-use token, and returns the raw secret for out-of-band
	// delivery. The raw value is never stored.
	Request(ctx context.Context, email string) (string, error)
	// Verify redeems a token exactly once and issues a session, creating
	// the user on first sign-in.
	Verify(ctx context.Context, email, token string, ip, userAgent *string) (*domain.User, *domain.Session, error)
}

// OAuthService reconciles federated provider identities against the user graph.
type OAuthService interface {
	ResolveLogin(ctx context.Context, provider domain.OAuthProvider, providerUserID, email string, ip, userAgent *string) (*domain.User, *domain.Session, error)
	LinkAccount(ctx context.Context, userID string, provider domain.OAuthProvider, providerUserID, email string) (*domain.Identity, error)
}

// RegistrationChallenge is the client-facing payload for a registration ceremony.
type RegistrationChallenge struct {
	Challenge json.RawMessage `json:"challenge"`
	UserID    string          `json:"user_id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
}

// AuthenticationChallenge is the client-facing payload for an
// authentication ceremony. The credential id list is a UX hint for the
// client, not a security boundary.
type AuthenticationChallenge struct {
	Challenge     json.RawMessage `json:"challenge"`
	CredentialIDs []string        `json:"credential_ids"`
}

// PasskeyService orchestrates WebAuthn registration and authentication ceremonies.
type PasskeyService interface {
	StartRegistration(ctx context.Context, userID string) (*RegistrationChallenge, error)
	FinishRegistration(ctx context.Context, userID string, response json.RawMessage, transports []string, deviceName *string) (*domain.Passkey, error)
	StartAuthentication(ctx context.Context, email string) (*AuthenticationChallenge, error)
	FinishAuthentication(ctx context.Context, credentialID string, response json.RawMessage, ip, userAgent *string) (*domain.User, *domain.Session, error)
}

// SessionService is the single source of truth for "is this caller
// authenticated". Every authenticator terminates in Issue.
type SessionService interface {
	Issue(ctx context.Context, userID string, ip, userAgent *string) (*domain.Session, error)
	Validate(ctx context.Context, sessionID string) (*domain.User, error)
	ValidateWithSession(ctx context.Context, sessionID string) (*domain.User, *domain.Session, error)
	Logout(ctx context.Context, sessionID string) error
	RevokeAll(ctx context.Context, userID string) error
	VerifyLight(ctx context.Context, sessionID string) bool
	SweepExpired(ctx context.Context) error
}

// AccountService handles profile, plan, and lifecycle mutations for
// already-authenticated users.
type AccountService interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, name, phone *string) (*domain.User, error)
	UpdatePlan(ctx context.Context, userID string, plan domain.Plan) (*domain.User, error)
	UpdateEmail(ctx context.Context, userID, newEmail string) (*domain.User, error)
	DeleteAccount(ctx context.Context, userID string) error
}

// ChallengeStore is short-lived key/value storage for opaque ceremony
// state. Get returns nil for a missing or expired entry; callers treat
// both cases identically.
type ChallengeStore interface {
	Store(ctx context.Context, key string, state []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// CredentialVerifier performs WebAuthn cryptographic verification. The
// state blobs it returns are opaque to the core and round-trip through
// the challenge store unmodified.
type CredentialVerifier interface {
	BeginRegistration(ctx context.Context, userID, email, name string) (challenge json.RawMessage, state []byte, err error)
	FinishRegistration(ctx context.Context, state, response []byte) (credentialID string, publicKey []byte, err error)
	BeginAuthentication(ctx context.Context, passkeys []*domain.Passkey) (challenge json.RawMessage, state []byte, err error)
	FinishAuthentication(ctx context.Context, state, response []byte) (signCount int64, err error)
}
