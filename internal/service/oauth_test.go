package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/repository"
)

func newOAuthFixture(t *testing.T) (*repository.Repositories, OAuthService) {
	t.Helper()
	repos := repository.NewMemoryRepositories()
	sessions := NewSessionService(repos.User, repos.Session, zap.NewNop(), time.Hour, time.Minute)
	svc := NewOAuthService(repos.User, repos.Identity, sessions)
	return repos, svc
}

func TestOAuthResolveLoginKnownIdentity(t *testing.T) {
	ctx := context.Background()
	repos, svc := newOAuthFixture(t)
	user := newTestUser(t, repos, "linked@example.com")

	require.NoError(t, repos.Identity.Create(ctx, &domain.Identity{
		UserID:         user.ID,
		Provider:       domain.ProviderGoogle,
		ProviderUserID: "google-sub-1",
		Email:          "linked@example.com",
		CreatedAt:      time.Now(),
	}))

	// Email reported by the provider is ignored when the subject is known.
	resolved, session, err := svc.ResolveLogin(ctx, domain.ProviderGoogle, "google-sub-1", "changed@example.com", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Equal(t, "linked@example.com", resolved.Email)
	assert.Equal(t, user.ID, session.UserID)
	require.NotNil(t, resolved.LastSignInMethod)
	assert.Equal(t, domain.SignInOAuth, *resolved.LastSignInMethod)
}

func TestOAuthResolveLoginLinksByEmail(t *testing.T) {
	ctx := context.Background()
	repos, svc := newOAuthFixture(t)
	user := newTestUser(t, repos, "match@example.com")

	resolved, _, err := svc.ResolveLogin(ctx, domain.ProviderApple, "apple-sub-9", "Match@Example.com", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	identity, err := repos.Identity.GetByProvider(ctx, domain.ProviderApple, "apple-sub-9")
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, "match@example.com", identity.Email)
}

func TestOAuthResolveLoginCreatesUser(t *testing.T) {
	ctx := context.Background()
	repos, svc := newOAuthFixture(t)

	resolved, session, err := svc.ResolveLogin(ctx, domain.ProviderGoogle, "google-sub-7", "fresh@example.com", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "fresh@example.com", resolved.Email)
	assert.Equal(t, domain.PlanFreeTrial, resolved.Plan)
	assert.Equal(t, resolved.ID, session.UserID)

	identity, err := repos.Identity.GetByProvider(ctx, domain.ProviderGoogle, "google-sub-7")
	require.NoError(t, err)
	assert.Equal(t, resolved.ID, identity.UserID)
}

func TestOAuthResolveLoginDanglingIdentity(t *testing.T) {
	ctx := context.Background()
	repos, svc := newOAuthFixture(t)

	require.NoError(t, repos.Identity.Create(ctx, &domain.Identity{
		UserID:         "gone-user",
		Provider:       domain.ProviderGoogle,
		ProviderUserID: "google-sub-2",
		Email:          "gone@example.com",
		CreatedAt:      time.Now(),
	}))

	_, _, err := svc.ResolveLogin(ctx, domain.ProviderGoogle, "google-sub-2", "gone@example.com", nil, nil)
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestOAuthLinkAccount(t *testing.T) {
	ctx := context.Background()
	repos, svc := newOAuthFixture(t)
	user := newTestUser(t, repos, "owner@example.com")

	identity, err := svc.LinkAccount(ctx, user.ID, domain.ProviderApple, "apple-sub-3", "owner@icloud.example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)

	// Linking the same pair again is a no-op for the same user.
	again, err := svc.LinkAccount(ctx, user.ID, domain.ProviderApple, "apple-sub-3", "owner@icloud.example.com")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, again.ID)
}

func TestOAuthLinkAccountPairOwnedByAnother(t *testing.T) {
	ctx := context.Background()
	repos, svc := newOAuthFixture(t)
	alice := newTestUser(t, repos, "alice@example.com")
	bob := newTestUser(t, repos, "bob@example.com")

	_, err := svc.LinkAccount(ctx, alice.ID, domain.ProviderGoogle, "google-sub-5", "alice@example.com")
	require.NoError(t, err)

	_, err = svc.LinkAccount(ctx, bob.ID, domain.ProviderGoogle, "google-sub-5", "bob@example.com")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestOAuthLinkAccountUnknownUser(t *testing.T) {
	ctx := context.Background()
	_, svc := newOAuthFixture(t)

	_, err := svc.LinkAccount(ctx, "no-such-user", domain.ProviderGoogle, "google-sub-6", "x@example.com")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}
