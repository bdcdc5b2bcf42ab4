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

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, phone, plan, last_sign_in_at, last_sign_in_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.Plan,
		user.LastSignInAt,
		user.LastSignInMethod,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// Email uniqueness is enforced here; the service's check-then-create
		// has an unavoidable race window.
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, name, email, phone, plan, last_sign_in_at, last_sign_in_method, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.DB.QueryRowContext(ctx, query, id), "id", id)
}

// GetByEmail retrieves a user by normalized email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, name, email, phone, plan, last_sign_in_at, last_sign_in_method, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	return r.scanUser(r.db.DB.QueryRowContext(ctx, query, email), "email", email)
}

func (r *userRepository) scanUser(row *sql.Row, field, value string) (*domain.User, error) {
	user := &domain.User{}
	var phone sql.NullString
	var lastSignInAt sql.NullTime
	var lastSignInMethod sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&phone,
		&user.Plan,
		&lastSignInAt,
		&lastSignInMethod,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with %s %s not found: %w", field, value, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", field, err)
	}

	if phone.Valid {
		user.Phone = &phone.String
	}
	if lastSignInAt.Valid {
		user.LastSignInAt = &lastSignInAt.Time
	}
	if lastSignInMethod.Valid {
		method := domain.SignInMethod(lastSignInMethod.String)
		user.LastSignInMethod = &method
	}

	return user, nil
}

// Update updates an existing user
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, phone = $4, plan = $5, last_sign_in_at = $6, last_sign_in_method = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.Plan,
		user.LastSignInAt,
		user.LastSignInMethod,
		user.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", user.ID, ErrNotFound)
	}

	return nil
}

// Delete deletes a user by ID. Idempotent: deleting an absent user is not
// an error, so the account-deletion cascade is safe to retry.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}
