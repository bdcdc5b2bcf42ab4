package repository

import (
	"context"

	"github.com/nimbusnote/auth-service/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
}

// SessionRepository defines methods for session operations
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) error
}

// IdentityRepository defines methods for OAuth identity link operations
type IdentityRepository interface {
	Create(ctx context.Context, identity *domain.Identity) error
	GetByProvider(ctx context.Context, provider domain.OAuthProvider, providerUserID string) (*domain.Identity, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.Identity, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

// PasskeyRepository defines methods for WebAuthn credential operations
type PasskeyRepository interface {
	Create(ctx context.Context, passkey *domain.Passkey) error
	GetByCredentialID(ctx context.Context, credentialID string) (*domain.Passkey, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.Passkey, error)
	// UpdateSignCount advances the signature counter from oldCount to
	// newCount as a single compare-and-set; it returns ErrNotFound when no
	// row still holds oldCount, which is how a concurrent use of the same
	// credential loses the race.
	UpdateSignCount(ctx context.Context, credentialID string, oldCount, newCount int64) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// MagicLinkRepository defines methods for magic link token operations
type MagicLinkRepository interface {
	// Save persists a token, replacing any prior record for the email.
	Save(ctx context.Context, token *domain.MagicLinkToken) error
	GetByEmail(ctx context.Context, email string) (*domain.MagicLinkToken, error)
	// MarkUsed flips the token to used as a single compare-and-set guarded
	// on used = FALSE; it returns ErrNotFound when the token was already
	// consumed, so concurrent redemptions cannot both succeed.
	MarkUsed(ctx context.Context, email string) error
	DeleteByEmail(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context) error
}
