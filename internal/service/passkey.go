package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/repository"
	"github.com/nimbusnote/auth-service/internal/validate"
)

// Ceremony state keys. One outstanding registration per user, one
// outstanding authentication per email.
const (
	regChallengePrefix  = "reg:"
	authChallengePrefix = "auth:"
)

// passkeyService implements PasskeyService interface
type passkeyService struct {
	userRepo    repository.UserRepository
	passkeyRepo repository.PasskeyRepository
	challenges  ChallengeStore
	verifier    CredentialVerifier
	sessions    SessionService
	challengeTTL time.Duration
}

// NewPasskeyService creates a new passkey service
func NewPasskeyService(
	userRepo repository.UserRepository,
	passkeyRepo repository.PasskeyRepository,
	challenges ChallengeStore,
	verifier CredentialVerifier,
	sessions SessionService,
	challengeTTL time.Duration,
) PasskeyService {
	return &passkeyService{
		userRepo:     userRepo,
		passkeyRepo:  passkeyRepo,
		challenges:   challenges,
		verifier:     verifier,
		sessions:     sessions,
		challengeTTL: challengeTTL,
	}
}

// StartRegistration begins a registration ceremony for an existing user.
func (s *passkeyService) StartRegistration(ctx context.Context, userID string) (*RegistrationChallenge, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, fmt.Errorf("failed to load user: %w", domain.ErrInternal)
	}

	existing, err := s.passkeyRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load passkeys: %w", domain.ErrInternal)
	}
	if !user.CanRegisterPasskey(len(existing)) {
		return nil, fmt.Errorf("passkey limit reached for plan %s: %w", user.Plan, domain.ErrConflict)
	}

	challenge, state, err := s.verifier.BeginRegistration(ctx, user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to begin registration: %w", domain.ErrInternal)
	}

	if err := s.challenges.Store(ctx, regChallengePrefix+user.ID, state, s.challengeTTL); err != nil {
		return nil, fmt.Errorf("failed to store ceremony state: %w", domain.ErrInternal)
	}

	return &RegistrationChallenge{
		Challenge: challenge,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
	}, nil
}

// FinishRegistration completes a registration ceremony and persists the
// new credential with a zero signature counter.
func (s *passkeyService) FinishRegistration(ctx context.Context, userID string, response json.RawMessage, transports []string, deviceName *string) (*domain.Passkey, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, fmt.Errorf("failed to load user: %w", domain.ErrInternal)
	}

	state, err := s.takeChallenge(ctx, regChallengePrefix+user.ID)
	if err != nil {
		return nil, err
	}

	credentialID, publicKey, err := s.verifier.FinishRegistration(ctx, state, response)
	if err != nil {
		return nil, domain.ErrInvalidCredential
	}

	now := time.Now()
	passkey := &domain.Passkey{
		UserID:       user.ID,
		CredentialID: credentialID,
		PublicKey:    publicKey,
		SignCount:    0,
		Transports:   transports,
		DeviceName:   deviceName,
		LastUsedAt:   &now,
		CreatedAt:    now,
	}

	if err := s.passkeyRepo.Create(ctx, passkey); err != nil {
		if errors.Is(err, repository.ErrDuplicateCredential) {
			return nil, fmt.Errorf("credential already registered: %w", domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to save passkey: %w", domain.ErrInternal)
	}

	return passkey, nil
}

// StartAuthentication begins an authentication ceremony for an email.
// An unknown email and an email with zero passkeys fail identically.
func (s *passkeyService) StartAuthentication(ctx context.Context, email string) (*AuthenticationChallenge, error) {
	normalized := validate.NormalizeEmail(email)

	user, err := s.userRepo.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, fmt.Errorf("failed to load user: %w", domain.ErrInternal)
	}

	passkeys, err := s.passkeyRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load passkeys: %w", domain.ErrInternal)
	}
	if len(passkeys) == 0 {
		return nil, domain.ErrInvalidCredential
	}

	challenge, state, err := s.verifier.BeginAuthentication(ctx, passkeys)
	if err != nil {
		return nil, fmt.Errorf("failed to begin authentication: %w", domain.ErrInternal)
	}

	if err := s.challenges.Store(ctx, authChallengePrefix+normalized, state, s.challengeTTL); err != nil {
		return nil, fmt.Errorf("failed to store ceremony state: %w", domain.ErrInternal)
	}

	credentialIDs := make([]string, 0, len(passkeys))
	for _, pk := range passkeys {
		credentialIDs = append(credentialIDs, pk.CredentialID)
	}

	return &AuthenticationChallenge{
		Challenge:     challenge,
		CredentialIDs: credentialIDs,
	}, nil
}

// FinishAuthentication completes an authentication ceremony. The verified
// signature counter must be strictly greater than the stored one; a
// stale counter means the credential was cloned and fails hard.
func (s *passkeyService) FinishAuthentication(ctx context.Context, credentialID string, response json.RawMessage, ip, userAgent *string) (*domain.User, *domain.Session, error) {
	passkey, err := s.passkeyRepo.GetByCredentialID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, domain.ErrInvalidCredential
		}
		return nil, nil, fmt.Errorf("failed to load passkey: %w", domain.ErrInternal)
	}

	user, err := s.userRepo.GetByID(ctx, passkey.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("passkey %s references missing user %s: %w", passkey.ID, passkey.UserID, domain.ErrInternal)
		}
		return nil, nil, fmt.Errorf("failed to load passkey user: %w", domain.ErrInternal)
	}

	state, err := s.takeChallenge(ctx, authChallengePrefix+validate.NormalizeEmail(user.Email))
	if err != nil {
		return nil, nil, err
	}

	signCount, err := s.verifier.FinishAuthentication(ctx, state, response)
	if err != nil {
		return nil, nil, domain.ErrInvalidCredential
	}

	if !passkey.VerifySignCount(signCount) {
		return nil, nil, fmt.Errorf("sign count %d not above stored %d for credential %s: %w",
			signCount, passkey.SignCount, credentialID, domain.ErrReplayDetected)
	}

	// The counter advances under a compare-and-set keyed on the previous
	// value; a concurrent use of a cloned credential loses the race and
	// surfaces as a replay.
	if err := s.passkeyRepo.UpdateSignCount(ctx, credentialID, passkey.SignCount, signCount); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("concurrent assertion for credential %s: %w", credentialID, domain.ErrReplayDetected)
		}
		return nil, nil, fmt.Errorf("failed to update sign count: %w", domain.ErrInternal)
	}

	user.RecordSignIn(domain.SignInPasskey, time.Now())
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to update user: %w", domain.ErrInternal)
	}

	session, err := s.sessions.Issue(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// takeChallenge retrieves and deletes ceremony state. A missing entry and
// an expired entry produce the same generic failure.
func (s *passkeyService) takeChallenge(ctx context.Context, key string) ([]byte, error) {
	state, err := s.challenges.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load ceremony state: %w", domain.ErrInternal)
	}
	if state == nil {
		return nil, domain.ErrInvalidCredential
	}
	if err := s.challenges.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to delete ceremony state: %w", domain.ErrInternal)
	}
	return state, nil
}
