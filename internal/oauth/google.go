package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/nimbusnote/auth-service/internal/domain"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// GoogleConfig holds the Google OAuth client settings.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type googleProvider struct {
	cfg    GoogleConfig
	client *http.Client
}

// NewGoogleProvider creates the Google provider.
func NewGoogleProvider(cfg GoogleConfig, client *http.Client) Provider {
	if client == nil {
		client = http.DefaultClient
	}
	return &googleProvider{cfg: cfg, client: client}
}

func (g *googleProvider) Name() domain.OAuthProvider {
	return domain.ProviderGoogle
}

func (g *googleProvider) AuthCodeURL(state, codeChallenge string) string {
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", g.cfg.ClientID)
	query.Set("redirect_uri", g.cfg.RedirectURI)
	query.Set("scope", "openid email profile")
	query.Set("state", state)
	query.Set("code_challenge", codeChallenge)
	query.Set("code_challenge_method", "S256")
	return googleAuthURL + "?" + query.Encode()
}

func (g *googleProvider) Exchange(ctx context.Context, code, codeVerifier string) (*Identity, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", g.cfg.RedirectURI)
	form.Set("client_id", g.cfg.ClientID)
	form.Set("client_secret", g.cfg.ClientSecret)
	form.Set("code_verifier", codeVerifier)

	tok, err := exchangeCode(ctx, g.client, googleTokenURL, form)
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}
	return g.fetchProfile(ctx, tok.AccessToken)
}

func (g *googleProvider) fetchProfile(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: userinfo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google: userinfo request failed with status %d", resp.StatusCode)
	}

	var payload struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("google: decode userinfo: %w", err)
	}
	if payload.Sub == "" {
		return nil, errors.New("google: userinfo missing subject")
	}
	// Only a verified email may participate in email-match account
	// linking downstream.
	if !payload.EmailVerified {
		return nil, fmt.Errorf("google: email %s is not verified: %w", payload.Email, domain.ErrInvalidCredential)
	}

	return &Identity{
		ProviderUserID: payload.Sub,
		Email:          strings.ToLower(strings.TrimSpace(payload.Email)),
		Name:           payload.Name,
	}, nil
}
