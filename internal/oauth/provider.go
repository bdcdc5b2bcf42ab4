// Package oauth implements the outbound half of federated sign-in: the
// authorization redirect, CSRF state with PKCE, and the code-for-token
// exchange against each provider. Identity resolution against the user
// graph lives in the service layer.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/service"
)

// Identity is what a completed provider flow yields: the stable subject
// identifier plus the verified email and display name when available.
type Identity struct {
	ProviderUserID string
	Email          string
	Name           string
}

// Provider is one configured upstream identity provider.
type Provider interface {
	Name() domain.OAuthProvider
	AuthCodeURL(state, codeChallenge string) string
	Exchange(ctx context.Context, code, codeVerifier string) (*Identity, error)
}

// Manager owns the configured providers and the state store shared
// between the redirect and callback legs.
type Manager struct {
	providers map[domain.OAuthProvider]Provider
	states    *flowStore
}

// NewManager creates a manager over the given providers.
func NewManager(store service.ChallengeStore, stateTTL time.Duration, providers ...Provider) *Manager {
	byName := make(map[domain.OAuthProvider]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Manager{
		providers: byName,
		states:    &flowStore{store: store, ttl: stateTTL},
	}
}

// Begin starts a flow and returns the provider authorization URL to
// redirect the client to. linkUserID is empty for a login flow and set
// for an account-linking flow.
func (m *Manager) Begin(ctx context.Context, provider domain.OAuthProvider, linkUserID string) (string, error) {
	p, ok := m.providers[provider]
	if !ok {
		return "", fmt.Errorf("provider %q is not configured: %w", provider, domain.ErrValidation)
	}

	codeVerifier, err := generateToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}

	state, err := m.states.begin(ctx, flowState{
		Provider:     provider,
		CodeVerifier: codeVerifier,
		LinkUserID:   linkUserID,
	})
	if err != nil {
		return "", err
	}

	return p.AuthCodeURL(state, computeS256Challenge(codeVerifier)), nil
}

// Complete consumes the callback state and exchanges the code. It
// returns the provider identity and, for linking flows, the user the
// flow was started for.
func (m *Manager) Complete(ctx context.Context, provider domain.OAuthProvider, state, code string) (*Identity, string, error) {
	record, err := m.states.consume(ctx, state)
	if err != nil {
		return nil, "", err
	}
	if record.Provider != provider {
		return nil, "", domain.ErrInvalidCredential
	}

	p, ok := m.providers[provider]
	if !ok {
		return nil, "", fmt.Errorf("provider %q is not configured: %w", provider, domain.ErrValidation)
	}

	identity, err := p.Exchange(ctx, code, record.CodeVerifier)
	if err != nil {
		return nil, "", err
	}
	return identity, record.LinkUserID, nil
}

// token is the provider token endpoint response shape shared by Google
// and Apple.
type token struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	Scope       string `json:"scope"`
	ExpiresIn   int64  `json:"expires_in"`
}

// exchangeCode posts the authorization code to a token endpoint.
func exchangeCode(ctx context.Context, client *http.Client, tokenURL string, form url.Values) (*token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	var payload token
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.AccessToken == "" && payload.IDToken == "" {
		return nil, errors.New("token response missing credentials")
	}
	return &payload, nil
}
