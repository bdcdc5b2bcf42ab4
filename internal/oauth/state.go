package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/service"
)

const stateKeyPrefix = "oauthstate:"

// flowState is what a callback needs to finish the flow: which provider
// started it, the PKCE verifier, and the linking user when the flow was
// started from an authenticated session.
type flowState struct {
	Provider     domain.OAuthProvider `json:"provider"`
	CodeVerifier string               `json:"code_verifier"`
	LinkUserID   string               `json:"link_user_id,omitempty"`
}

type flowStore struct {
	store service.ChallengeStore
	ttl   time.Duration
}

// begin mints an unguessable state value and persists the flow record
// under it for the configured TTL.
func (f *flowStore) begin(ctx context.Context, state flowState) (string, error) {
	value, err := generateToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}
	if err := f.store.Store(ctx, stateKeyPrefix+value, payload, f.ttl); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}
	return value, nil
}

// consume retrieves and deletes a flow record. Unknown, expired, and
// already-consumed states all fail the same way.
func (f *flowStore) consume(ctx context.Context, value string) (*flowState, error) {
	payload, err := f.store.Get(ctx, stateKeyPrefix+value)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	if payload == nil {
		return nil, domain.ErrInvalidCredential
	}
	if err := f.store.Delete(ctx, stateKeyPrefix+value); err != nil {
		return nil, fmt.Errorf("failed to delete state: %w", err)
	}
	var state flowState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}

func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// computeS256Challenge computes the OAuth PKCE S256 challenge from a verifier.
func computeS256Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
