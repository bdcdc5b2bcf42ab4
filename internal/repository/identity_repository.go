package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/pkg/database"
)

// identityRepository implements IdentityRepository interface
type identityRepository struct {
	db *database.Postgres
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *database.Postgres) IdentityRepository {
	return &identityRepository{db: db}
}

// Create creates a new OAuth identity link
func (r *identityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	query := `
		INSERT INTO user_identities (id, user_id, provider, provider_user_id, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		identity.ID,
		identity.UserID,
		identity.Provider,
		identity.ProviderUserID,
		identity.Email,
		identity.CreatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation on (provider, provider_user_id)
				return fmt.Errorf("identity for %s already exists: %w", identity.Provider, ErrDuplicateIdentity)
			}
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}

	return nil
}

// GetByProvider retrieves an identity by provider and provider subject id
func (r *identityRepository) GetByProvider(ctx context.Context, provider domain.OAuthProvider, providerUserID string) (*domain.Identity, error) {
	query := `
		SELECT id, user_id, provider, provider_user_id, email, created_at
		FROM user_identities
		WHERE provider = $1 AND provider_user_id = $2
	`

	identity := &domain.Identity{}

	err := r.db.DB.QueryRowContext(ctx, query, provider, providerUserID).Scan(
		&identity.ID,
		&identity.UserID,
		&identity.Provider,
		&identity.ProviderUserID,
		&identity.Email,
		&identity.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("identity not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	return identity, nil
}

// GetByUserID retrieves all identities linked to a user
func (r *identityRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.Identity, error) {
	query := `
		SELECT id, user_id, provider, provider_user_id, email, created_at
		FROM user_identities
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get identities by user id: %w", err)
	}
	defer rows.Close()

	var identities []*domain.Identity
	for rows.Next() {
		identity := &domain.Identity{}

		err := rows.Scan(
			&identity.ID,
			&identity.UserID,
			&identity.Provider,
			&identity.ProviderUserID,
			&identity.Email,
			&identity.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}

		identities = append(identities, identity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate identities: %w", err)
	}

	return identities, nil
}

// DeleteByUserID deletes all identities for a user
func (r *identityRepository) DeleteByUserID(ctx context.Context, userID string) error {
	query := `DELETE FROM user_identities WHERE user_id = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete identities for user: %w", err)
	}

	return nil
}
