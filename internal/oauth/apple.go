package oauth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nimbusnote/auth-service/internal/domain"
)

const (
	appleAuthURL  = "https://appleid.apple.com/auth/authorize"
	appleTokenURL = "https://appleid.apple.com/auth/token"
	appleAudience = "https://appleid.apple.com"
)

// AppleConfig holds the Sign in with Apple client settings. The client
// secret is not static: Apple requires a short-lived ES256 JWT signed
// with the developer key.
type AppleConfig struct {
	ClientID      string
	TeamID        string
	KeyID         string
	PrivateKeyPEM string
	RedirectURI   string
}

type appleProvider struct {
	cfg        AppleConfig
	privateKey *ecdsa.PrivateKey
	client     *http.Client
}

// NewAppleProvider creates the Apple provider.
func NewAppleProvider(cfg AppleConfig, client *http.Client) (Provider, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("apple: failed to parse private key: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &appleProvider{cfg: cfg, privateKey: key, client: client}, nil
}

func (a *appleProvider) Name() domain.OAuthProvider {
	return domain.ProviderApple
}

func (a *appleProvider) AuthCodeURL(state, codeChallenge string) string {
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("response_mode", "form_post")
	query.Set("client_id", a.cfg.ClientID)
	query.Set("redirect_uri", a.cfg.RedirectURI)
	query.Set("scope", "name email")
	query.Set("state", state)
	query.Set("code_challenge", codeChallenge)
	query.Set("code_challenge_method", "S256")
	return appleAuthURL + "?" + query.Encode()
}

func (a *appleProvider) Exchange(ctx context.Context, code, codeVerifier string) (*Identity, error) {
	clientSecret, err := a.clientSecret()
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", a.cfg.RedirectURI)
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", clientSecret)
	form.Set("code_verifier", codeVerifier)

	tok, err := exchangeCode(ctx, a.client, appleTokenURL, form)
	if err != nil {
		return nil, fmt.Errorf("apple: %w", err)
	}
	if tok.IDToken == "" {
		return nil, errors.New("apple: token response missing id_token")
	}
	return identityFromIDToken(tok.IDToken)
}

// clientSecret mints the per-request client secret JWT Apple expects:
// ES256, issued by the team, subject of the service id, valid briefly.
func (a *appleProvider) clientSecret() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": a.cfg.TeamID,
		"sub": a.cfg.ClientID,
		"aud": appleAudience,
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	})
	token.Header["kid"] = a.cfg.KeyID

	signed, err := token.SignedString(a.privateKey)
	if err != nil {
		return "", fmt.Errorf("apple: failed to sign client secret: %w", err)
	}
	return signed, nil
}

// identityFromIDToken extracts the subject and email claims. The token
// arrives directly from Apple's token endpoint over TLS, not from the
// client, so the claims are read without a JWKS round trip.
func identityFromIDToken(idToken string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("apple: failed to parse id_token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("apple: id_token missing subject")
	}
	email, _ := claims["email"].(string)

	// Apple encodes email_verified as a bool or the string "true"
	// depending on the flow.
	verified := false
	switch v := claims["email_verified"].(type) {
	case bool:
		verified = v
	case string:
		verified = v == "true"
	}
	if email != "" && !verified {
		return nil, fmt.Errorf("apple: email %s is not verified: %w", email, domain.ErrInvalidCredential)
	}

	return &Identity{
		ProviderUserID: sub,
		Email:          strings.ToLower(strings.TrimSpace(email)),
	}, nil
}
