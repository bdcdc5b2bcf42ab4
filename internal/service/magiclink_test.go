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

func newMagicLinkFixture(t *testing.T) (*repository.Repositories, MagicLinkService) {
	t.Helper()
	repos := repository.NewMemoryRepositories()
	sessions := NewSessionService(repos.User, repos.Session, zap.NewNop(), time.Hour, time.Minute)
	links := NewMagicLinkService(repos.User, repos.MagicLink, sessions, 15*time.Minute)
	return repos, links
}

func TestMagicLinkFirstSignInCreatesAccount(t *testing.T) {
	ctx := context.Background()
	repos, links := newMagicLinkFixture(t)

	secret, err := links.Request(ctx, "New.Person@Example.COM")
	require.NoError(t, err)
	assert.Len(t, secret, 64)

	user, session, err := links.Verify(ctx, "new.person@example.com", secret, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "new.person@example.com", user.Email)
	assert.Equal(t, "new.person", user.Name)
	assert.Equal(t, domain.PlanFreeTrial, user.Plan)
	require.NotNil(t, user.LastSignInMethod)
	assert.Equal(t, domain.SignInMagicLink, *user.LastSignInMethod)
	assert.Equal(t, user.ID, session.UserID)

	stored, err := repos.User.GetByEmail(ctx, "new.person@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
}

func TestMagicLinkExistingUserSignsIn(t *testing.T) {
	ctx := context.Background()
	repos, links := newMagicLinkFixture(t)
	existing := newTestUser(t, repos, "old.hand@example.com")

	secret, err := links.Request(ctx, "old.hand@example.com")
	require.NoError(t, err)

	user, _, err := links.Verify(ctx, "old.hand@example.com", secret, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	require.NotNil(t, user.LastSignInMethod)
	assert.Equal(t, domain.SignInMagicLink, *user.LastSignInMethod)
}

func TestMagicLinkTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	_, links := newMagicLinkFixture(t)

	secret, err := links.Request(ctx, "once@example.com")
	require.NoError(t, err)

	_, _, err = links.Verify(ctx, "once@example.com", secret, nil, nil)
	require.NoError(t, err)

	_, _, err = links.Verify(ctx, "once@example.com", secret, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestMagicLinkWrongTokenRejected(t *testing.T) {
	ctx := context.Background()
	_, links := newMagicLinkFixture(t)

	_, err := links.Request(ctx, "victim@example.com")
	require.NoError(t, err)

	_, _, err = links.Verify(ctx, "victim@example.com", "deadbeef", nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestMagicLinkExpiredTokenRejected(t *testing.T) {
	ctx := context.Background()
	repos, links := newMagicLinkFixture(t)

	secret := "a-known-secret"
	token := &domain.MagicLinkToken{
		Email:     "late@example.com",
		TokenHash: hashToken(secret),
		ExpiresAt: time.Now().Add(-time.Second),
		Used:      false,
	}
	require.NoError(t, repos.MagicLink.Save(ctx, token))

	_, _, err := links.Verify(ctx, "late@example.com", secret, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestMagicLinkSecondRequestSupersedesFirst(t *testing.T) {
	ctx := context.Background()
	_, links := newMagicLinkFixture(t)

	first, err := links.Request(ctx, "eager@example.com")
	require.NoError(t, err)
	second, err := links.Request(ctx, "eager@example.com")
	require.NoError(t, err)

	_, _, err = links.Verify(ctx, "eager@example.com", first, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	_, _, err = links.Verify(ctx, "eager@example.com", second, nil, nil)
	assert.NoError(t, err)
}

func TestMagicLinkRequestRejectsBadEmail(t *testing.T) {
	ctx := context.Background()
	_, links := newMagicLinkFixture(t)

	_, err := links.Request(ctx, "not-an-email")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMagicLinkVerifyUnknownEmail(t *testing.T) {
	ctx := context.Background()
	_, links := newMagicLinkFixture(t)

	_, _, err := links.Verify(ctx, "phantom@example.com", "whatever", nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}
