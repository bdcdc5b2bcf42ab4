package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/repository"
	"github.com/nimbusnote/auth-service/internal/validate"
)

// oauthService implements OAuthService interface
type oauthService struct {
	userRepo     repository.UserRepository
	identityRepo repository.IdentityRepository
	sessions     SessionService
}

// NewOAuthService creates a new oauth service
func NewOAuthService(
	userRepo repository.UserRepository,
	identityRepo repository.IdentityRepository,
	sessions SessionService,
) OAuthService {
	return &oauthService{
		userRepo:     userRepo,
		identityRepo: identityRepo,
		sessions:     sessions,
	}
}

// ResolveLogin decides which user a provider identity proves the caller is:
//
//  1. A known (provider, subject) pair resolves to its linked user.
//  2. Otherwise an existing user with the provider-reported email gains a
//     new link. This email-match linking is a product decision to avoid
//     duplicate accounts; it trusts the provider's email claim, so the
//     transport layer only forwards emails the provider asserts as
//     verified.
//  3. Otherwise a new user and link are created.
func (s *oauthService) ResolveLogin(ctx context.Context, provider domain.OAuthProvider, providerUserID, email string, ip, userAgent *string) (*domain.User, *domain.Session, error) {
	normalized := validate.NormalizeEmail(email)

	identity, err := s.identityRepo.GetByProvider(ctx, provider, providerUserID)
	if err == nil {
		return s.loginLinkedUser(ctx, identity, provider, ip, userAgent)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to look up identity: %w", domain.ErrInternal)
	}

	user, err := s.userRepo.GetByEmail(ctx, normalized)
	switch {
	case err == nil:
		// Email-match linking path.
		if err := s.createIdentity(ctx, user.ID, provider, providerUserID, normalized); err != nil {
			return nil, nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.createUser(ctx, normalized)
		if err != nil {
			return nil, nil, err
		}
		if err := s.createIdentity(ctx, user.ID, provider, providerUserID, normalized); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("failed to look up user: %w", domain.ErrInternal)
	}

	user.RecordSignIn(domain.SignInOAuth, time.Now())
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to update user: %w", domain.ErrInternal)
	}

	session, err := s.sessions.Issue(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// loginLinkedUser is the fast path for a (provider, subject) pair that is
// already linked.
func (s *oauthService) loginLinkedUser(ctx context.Context, identity *domain.Identity, provider domain.OAuthProvider, ip, userAgent *string) (*domain.User, *domain.Session, error) {
	user, err := s.userRepo.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A link pointing at no user is a consistency fault, never a
			// credential fault.
			return nil, nil, fmt.Errorf("identity %s references missing user %s: %w", identity.ID, identity.UserID, domain.ErrInternal)
		}
		return nil, nil, fmt.Errorf("failed to load linked user: %w", domain.ErrInternal)
	}

	user.RecordSignIn(domain.SignInOAuth, time.Now())
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to update user: %w", domain.ErrInternal)
	}

	session, err := s.sessions.Issue(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// LinkAccount attaches an additional provider to an authenticated user.
// Idempotent for the same user; Conflict when the pair belongs to someone else.
func (s *oauthService) LinkAccount(ctx context.Context, userID string, provider domain.OAuthProvider, providerUserID, email string) (*domain.Identity, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, fmt.Errorf("failed to load user: %w", domain.ErrInternal)
	}

	existing, err := s.identityRepo.GetByProvider(ctx, provider, providerUserID)
	if err == nil {
		if existing.UserID != user.ID {
			return nil, fmt.Errorf("identity already linked to another account: %w", domain.ErrConflict)
		}
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up identity: %w", domain.ErrInternal)
	}

	identity := &domain.Identity{
		UserID:         user.ID,
		Provider:       provider,
		ProviderUserID: providerUserID,
		Email:          validate.NormalizeEmail(email),
		CreatedAt:      time.Now(),
	}

	if err := s.identityRepo.Create(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdentity) {
			// Lost a race with a concurrent link of the same pair.
			return nil, fmt.Errorf("identity already linked: %w", domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create identity: %w", domain.ErrInternal)
	}

	return identity, nil
}

func (s *oauthService) createIdentity(ctx context.Context, userID string, provider domain.OAuthProvider, providerUserID, email string) error {
	identity := &domain.Identity{
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
		Email:          email,
		CreatedAt:      time.Now(),
	}
	if err := s.identityRepo.Create(ctx, identity); err != nil {
		return fmt.Errorf("failed to create identity: %w", domain.ErrInternal)
	}
	return nil
}

func (s *oauthService) createUser(ctx context.Context, email string) (*domain.User, error) {
	now := time.Now()
	user := &domain.User{
		Name:      validate.NameFromEmail(email),
		Email:     email,
		Plan:      domain.PlanFreeTrial,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", domain.ErrInternal)
	}
	return user, nil
}
