package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/repository"
	"go.uber.org/zap"
)

// sessionService implements SessionService interface
type sessionService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	logger      *zap.Logger
	ttl         time.Duration // lifetime of a fresh or renewed session
	renewBelow  time.Duration // remaining lifetime that triggers renewal
}

// NewSessionService creates a new session service
func NewSessionService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	logger *zap.Logger,
	ttl, renewBelow time.Duration,
) SessionService {
	return &sessionService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		logger:      logger,
		ttl:         ttl,
		renewBelow:  renewBelow,
	}
}

// Issue creates a session for a user with an unguessable 256-bit id.
func (s *sessionService) Issue(ctx context.Context, userID string, ip, userAgent *string) (*domain.Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", domain.ErrInternal)
	}

	session := &domain.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.ttl),
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", domain.ErrInternal)
	}

	return session, nil
}

// Validate is the per-request authorization check. Expired sessions are
// deleted, never silently extended.
func (s *sessionService) Validate(ctx context.Context, sessionID string) (*domain.User, error) {
	user, _, err := s.ValidateWithSession(ctx, sessionID)
	return user, err
}

// ValidateWithSession validates and returns the (possibly renewed) session
// alongside the user.
func (s *sessionService) ValidateWithSession(ctx context.Context, sessionID string) (*domain.User, *domain.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, domain.ErrInvalidCredential
		}
		return nil, nil, fmt.Errorf("failed to load session: %w", domain.ErrInternal)
	}

	now := time.Now()
	if session.Expired(now) {
		_ = s.sessionRepo.Delete(ctx, sessionID)
		return nil, nil, domain.ErrInvalidCredential
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A session pointing at no user is a consistency fault, not a
			// credential fault.
			return nil, nil, fmt.Errorf("session %s references missing user %s: %w", sessionID, session.UserID, domain.ErrInternal)
		}
		return nil, nil, fmt.Errorf("failed to load session user: %w", domain.ErrInternal)
	}

	// Sliding-window renewal. Persistence is best effort: the caller's
	// current request succeeds even if the extension write fails.
	if session.Remaining(now) < s.renewBelow {
		session.ExpiresAt = now.Add(s.ttl)
		if err := s.sessionRepo.Update(ctx, session); err != nil {
			s.logger.Warn("session renewal failed",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	return user, session, nil
}

// Logout deletes one session; repeat calls are no-ops.
func (s *sessionService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", domain.ErrInternal)
	}
	return nil
}

// RevokeAll deletes every session owned by a user: "log out everywhere",
// forced re-auth after an email change, and the first step of account
// deletion.
func (s *sessionService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", domain.ErrInternal)
	}
	return nil
}

// VerifyLight is a side-effect-free liveness check: no renewal, no
// expiry deletion.
func (s *sessionService) VerifyLight(ctx context.Context, sessionID string) bool {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return false
	}
	return !session.Expired(time.Now())
}

// SweepExpired deletes all sessions past expiry; meant for a periodic schedule.
func (s *sessionService) SweepExpired(ctx context.Context) error {
	if err := s.sessionRepo.DeleteExpired(ctx); err != nil {
		return fmt.Errorf("failed to sweep expired sessions: %w", domain.ErrInternal)
	}
	return nil
}

// newSessionID returns 32 random bytes hex encoded.
func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
