package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/repository"
	"github.com/nimbusnote/auth-service/internal/validate"
)

// magicLinkService implements MagicLinkService interface
type magicLinkService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.MagicLinkRepository
	sessions  SessionService
	ttl       time.Duration
}

// NewMagicLinkService creates a new magic link service
func NewMagicLinkService(
	userRepo repository.UserRepository,
	tokenRepo repository.MagicLinkRepository,
	sessions SessionService,
	ttl time.Duration,
) MagicLinkService {
	return &magicLinkService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		sessions:  sessions,
		ttl:       ttl,
	}
}

// Request issues a single-use token for the email. Only the SHA-256 hash
// is persisted; the raw secret goes back to the caller for email delivery.
// Any prior outstanding token for the email is superseded.
func (s *magicLinkService) Request(ctx context.Context, email string) (string, error) {
	if !validate.Email(email) {
		return "", fmt.Errorf("invalid email address: %w", domain.ErrValidation)
	}
	normalized := validate.NormalizeEmail(email)

	secret, err := newToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", domain.ErrInternal)
	}

	token := &domain.MagicLinkToken{
		Email:     normalized,
		TokenHash: hashToken(secret),
		ExpiresAt: time.Now().Add(s.ttl),
		Used:      false,
	}

	if err := s.tokenRepo.Save(ctx, token); err != nil {
		return "", fmt.Errorf("failed to save magic link: %w", domain.ErrInternal)
	}

	return secret, nil
}

// Verify redeems a token. Every failure mode (absent, used, expired,
// hash mismatch) surfaces the same ErrInvalidCredential so callers learn
// nothing about which check failed.
func (s *magicLinkService) Verify(ctx context.Context, email, token string, ip, userAgent *string) (*domain.User, *domain.Session, error) {
	normalized := validate.NormalizeEmail(email)

	record, err := s.tokenRepo.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, domain.ErrInvalidCredential
		}
		return nil, nil, fmt.Errorf("failed to load magic link: %w", domain.ErrInternal)
	}

	if !record.Redeemable(time.Now()) {
		return nil, nil, domain.ErrInvalidCredential
	}

	supplied := hashToken(token)
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(record.TokenHash)) != 1 {
		return nil, nil, domain.ErrInvalidCredential
	}

	// Exactly-once: the repository flips used under a compare-and-set, so
	// a concurrent redemption of the same token loses here.
	if err := s.tokenRepo.MarkUsed(ctx, normalized); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, domain.ErrInvalidCredential
		}
		return nil, nil, fmt.Errorf("failed to mark magic link used: %w", domain.ErrInternal)
	}

	user, err := s.resolveUser(ctx, normalized)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.Issue(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// resolveUser finds the user for a redeemed token, creating the account
// on first sign-in.
func (s *magicLinkService) resolveUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		user.RecordSignIn(domain.SignInMagicLink, time.Now())
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", domain.ErrInternal)
		}
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", domain.ErrInternal)
	}

	now := time.Now()
	user = &domain.User{
		Name:      validate.NameFromEmail(email),
		Email:     email,
		Plan:      domain.PlanFreeTrial,
		CreatedAt: now,
		UpdatedAt: now,
	}
	user.RecordSignIn(domain.SignInMagicLink, now)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", domain.ErrInternal)
	}

	return user, nil
}

// newToken returns a 256-bit random secret hex encoded.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashToken hashes a token using SHA256
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
