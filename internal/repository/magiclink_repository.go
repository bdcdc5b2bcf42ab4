package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/pkg/database"
)

// magicLinkRepository implements MagicLinkRepository interface
type magicLinkRepository struct {
	db *database.Postgres
}

// NewMagicLinkRepository creates a new magic link repository
func NewMagicLinkRepository(db *database.Postgres) MagicLinkRepository {
	return &magicLinkRepository{db: db}
}

// Save persists a token for an email, replacing any prior record. At most
// one outstanding token exists per email.
func (r *magicLinkRepository) Save(ctx context.Context, token *domain.MagicLinkToken) error {
	query := `
		INSERT INTO magic_link_tokens (email, token_hash, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    used = EXCLUDED.used,
		    created_at = EXCLUDED.created_at
	`

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		token.Email,
		token.TokenHash,
		token.ExpiresAt,
		token.Used,
		token.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save magic link token: %w", err)
	}

	return nil
}

// GetByEmail retrieves the token record for a normalized email
func (r *magicLinkRepository) GetByEmail(ctx context.Context, email string) (*domain.MagicLinkToken, error) {
	query := `
		SELECT email, token_hash, expires_at, used, created_at
		FROM magic_link_tokens
		WHERE email = $1
	`

	token := &domain.MagicLinkToken{}

	err := r.db.DB.QueryRowContext(ctx, query, email).Scan(
		&token.Email,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Used,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("magic link token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get magic link token: %w", err)
	}

	return token, nil
}

// MarkUsed flips the token to used, guarded on used = FALSE. Of two
// concurrent redemptions, exactly one sees a row change; the other gets
// ErrNotFound.
func (r *magicLinkRepository) MarkUsed(ctx context.Context, email string) error {
	query := `
		UPDATE magic_link_tokens
		SET used = TRUE
		WHERE email = $1 AND used = FALSE
	`

	result, err := r.db.DB.ExecContext(ctx, query, email)
	if err != nil {
		return fmt.Errorf("failed to mark magic link used: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("unused magic link token not found: %w", ErrNotFound)
	}

	return nil
}

// DeleteByEmail deletes the token record for an email
func (r *magicLinkRepository) DeleteByEmail(ctx context.Context, email string) error {
	query := `DELETE FROM magic_link_tokens WHERE email = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("failed to delete magic link tokens: %w", err)
	}

	return nil
}

// DeleteExpired deletes all expired token records
func (r *magicLinkRepository) DeleteExpired(ctx context.Context) error {
	query := `DELETE FROM magic_link_tokens WHERE expires_at < $1`

	if _, err := r.db.DB.ExecContext(ctx, query, time.Now()); err != nil {
		return fmt.Errorf("failed to delete expired magic link tokens: %w", err)
	}

	return nil
}
