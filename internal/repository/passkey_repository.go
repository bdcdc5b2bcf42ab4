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

// passkeyRepository implements PasskeyRepository interface
type passkeyRepository struct {
	db *database.Postgres
}

// NewPasskeyRepository creates a new passkey repository
func NewPasskeyRepository(db *database.Postgres) PasskeyRepository {
	return &passkeyRepository{db: db}
}

// Create creates a new passkey credential
func (r *passkeyRepository) Create(ctx context.Context, passkey *domain.Passkey) error {
	query := `
		INSERT INTO passkeys (id, user_id, credential_id, public_key, sign_count, transports, device_name, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if passkey.ID == "" {
		passkey.ID = uuid.New().String()
	}
	if passkey.CreatedAt.IsZero() {
		passkey.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		passkey.ID,
		passkey.UserID,
		passkey.CredentialID,
		passkey.PublicKey,
		passkey.SignCount,
		pq.Array(passkey.Transports),
		passkey.DeviceName,
		passkey.LastUsedAt,
		passkey.CreatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation on credential_id
				return fmt.Errorf("passkey %s already registered: %w", passkey.CredentialID, ErrDuplicateCredential)
			}
		}
		return fmt.Errorf("failed to create passkey: %w", err)
	}

	return nil
}

// GetByCredentialID retrieves a passkey by the client-presented credential id
func (r *passkeyRepository) GetByCredentialID(ctx context.Context, credentialID string) (*domain.Passkey, error) {
	query := `
		SELECT id, user_id, credential_id, public_key, sign_count, transports, device_name, last_used_at, created_at
		FROM passkeys
		WHERE credential_id = $1
	`

	passkey := &domain.Passkey{}
	var transports pq.StringArray
	var deviceName sql.NullString
	var lastUsedAt sql.NullTime

	err := r.db.DB.QueryRowContext(ctx, query, credentialID).Scan(
		&passkey.ID,
		&passkey.UserID,
		&passkey.CredentialID,
		&passkey.PublicKey,
		&passkey.SignCount,
		&transports,
		&deviceName,
		&lastUsedAt,
		&passkey.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("passkey not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get passkey: %w", err)
	}

	passkey.Transports = transports
	if deviceName.Valid {
		passkey.DeviceName = &deviceName.String
	}
	if lastUsedAt.Valid {
		passkey.LastUsedAt = &lastUsedAt.Time
	}

	return passkey, nil
}

// GetByUserID retrieves all passkeys registered by a user
func (r *passkeyRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.Passkey, error) {
	query := `
		SELECT id, user_id, credential_id, public_key, sign_count, transports, device_name, last_used_at, created_at
		FROM passkeys
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get passkeys by user id: %w", err)
	}
	defer rows.Close()

	var passkeys []*domain.Passkey
	for rows.Next() {
		passkey := &domain.Passkey{}
		var transports pq.StringArray
		var deviceName sql.NullString
		var lastUsedAt sql.NullTime

		err := rows.Scan(
			&passkey.ID,
			&passkey.UserID,
			&passkey.CredentialID,
			&passkey.PublicKey,
			&passkey.SignCount,
			&transports,
			&deviceName,
			&lastUsedAt,
			&passkey.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan passkey: %w", err)
		}

		passkey.Transports = transports
		if deviceName.Valid {
			passkey.DeviceName = &deviceName.String
		}
		if lastUsedAt.Valid {
			passkey.LastUsedAt = &lastUsedAt.Time
		}

		passkeys = append(passkeys, passkey)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate passkeys: %w", err)
	}

	return passkeys, nil
}

// UpdateSignCount advances the signature counter with a compare-and-set on
// the previous value. Two concurrent assertions from a cloned credential
// race here: only the one that still sees oldCount wins.
func (r *passkeyRepository) UpdateSignCount(ctx context.Context, credentialID string, oldCount, newCount int64) error {
	query := `
		UPDATE passkeys
		SET sign_count = $3, last_used_at = $4
		WHERE credential_id = $1 AND sign_count = $2
	`

	result, err := r.db.DB.ExecContext(ctx, query, credentialID, oldCount, newCount, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update sign count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("passkey with expected sign count not found: %w", ErrNotFound)
	}

	return nil
}

// DeleteByUserID deletes all passkeys for a user
func (r *passkeyRepository) DeleteByUserID(ctx context.Context, userID string) error {
	query := `DELETE FROM passkeys WHERE user_id = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete passkeys for user: %w", err)
	}

	return nil
}
