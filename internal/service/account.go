package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/repository"
	"github.com/nimbusnote/auth-service/internal/validate"
)

// accountService implements AccountService interface
type accountService struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	identityRepo repository.IdentityRepository
	passkeyRepo  repository.PasskeyRepository
	tokenRepo    repository.MagicLinkRepository
	sessions     SessionService
	logger       *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	identityRepo repository.IdentityRepository,
	passkeyRepo repository.PasskeyRepository,
	tokenRepo repository.MagicLinkRepository,
	sessions SessionService,
	logger *zap.Logger,
) AccountService {
	return &accountService{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		identityRepo: identityRepo,
		passkeyRepo:  passkeyRepo,
		tokenRepo:    tokenRepo,
		sessions:     sessions,
		logger:       logger,
	}
}

func (s *accountService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, fmt.Errorf("failed to load user: %w", domain.ErrInternal)
	}
	return user, nil
}

// UpdateProfile applies partial updates to name and phone. A nil field
// is left untouched; phone accepts an empty string to clear the value.
func (s *accountService) UpdateProfile(ctx context.Context, userID string, name, phone *string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, fmt.Errorf("failed to load user: %w", domain.ErrInternal)
	}

	if name != nil {
		cleaned, err := validate.Name(*name)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, domain.ErrValidation)
		}
		user.Name = cleaned
	}

	if phone != nil {
		if *phone == "" {
			user.Phone = nil
		} else {
			normalized, err := validate.Phone(*phone)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", err, domain.ErrValidation)
			}
			user.Phone = &normalized
		}
	}

	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", domain.ErrInternal)
	}
	return user, nil
}

func (s *accountService) UpdatePlan(ctx context.Context, userID string, plan domain.Plan) (*domain.User, error) {
	if !plan.Valid() {
		return nil, fmt.Errorf("unknown plan %q: %w", plan, domain.ErrValidation)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, fmt.Errorf("failed to load user: %w", domain.ErrInternal)
	}

	user.Plan = plan
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", domain.ErrInternal)
	}
	return user, nil
}

// UpdateEmail changes the account email and revokes every session. The
// caller re-authenticates against the new address.
func (s *accountService) UpdateEmail(ctx context.Context, userID, newEmail string) (*domain.User, error) {
	normalized := validate.NormalizeEmail(newEmail)
	if !validate.Email(normalized) {
		return nil, fmt.Errorf("invalid email address: %w", domain.ErrValidation)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, fmt.Errorf("failed to load user: %w", domain.ErrInternal)
	}

	if user.Email == normalized {
		return user, nil
	}

	user.Email = normalized
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, fmt.Errorf("email already in use: %w", domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to update user: %w", domain.ErrInternal)
	}

	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return nil, err
	}

	s.logger.Info("email changed, all sessions revoked", zap.String("user_id", userID))
	return user, nil
}

// DeleteAccount removes the user and everything hanging off it. Child
// rows go first so a mid-cascade failure leaves no orphans pointing at
// a deleted user; each step is idempotent and the whole call retryable.
func (s *accountService) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInvalidCredential
		}
		return fmt.Errorf("failed to load user: %w", domain.ErrInternal)
	}

	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", domain.ErrInternal)
	}
	if err := s.identityRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete identities: %w", domain.ErrInternal)
	}
	if err := s.passkeyRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete passkeys: %w", domain.ErrInternal)
	}
	if err := s.tokenRepo.DeleteByEmail(ctx, user.Email); err != nil {
		return fmt.Errorf("failed to delete magic link tokens: %w", domain.ErrInternal)
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", domain.ErrInternal)
	}

	s.logger.Info("account deleted", zap.String("user_id", userID))
	return nil
}
