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

func newTestUser(t *testing.T, repos *repository.Repositories, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:  "Test User",
		Email: email,
		Plan:  domain.PlanFreeTrial,
	}
	require.NoError(t, repos.User.Create(context.Background(), user))
	return user
}

func newSessionFixture(t *testing.T, ttl, renewBelow time.Duration) (*repository.Repositories, SessionService) {
	t.Helper()
	repos := repository.NewMemoryRepositories()
	sessions := NewSessionService(repos.User, repos.Session, zap.NewNop(), ttl, renewBelow)
	return repos, sessions
}

func TestSessionIssueAndValidate(t *testing.T) {
	ctx := context.Background()
	repos, sessions := newSessionFixture(t, 30*24*time.Hour, 7*24*time.Hour)
	user := newTestUser(t, repos, "alice@example.com")

	ip := "203.0.113.7"
	ua := "test-agent"
	session, err := sessions.Issue(ctx, user.ID, &ip, &ua)
	require.NoError(t, err)
	assert.Len(t, session.ID, 64)
	assert.Equal(t, user.ID, session.UserID)

	validated, got, err := sessions.ValidateWithSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, validated.ID)
	assert.Equal(t, session.ID, got.ID)

	assert.True(t, sessions.VerifyLight(ctx, session.ID))
}

func TestSessionValidateUnknownID(t *testing.T) {
	ctx := context.Background()
	_, sessions := newSessionFixture(t, time.Hour, time.Minute)

	_, err := sessions.Validate(ctx, "no-such-session")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestSessionExpiredIsDeletedOnValidate(t *testing.T) {
	ctx := context.Background()
	repos, sessions := newSessionFixture(t, time.Hour, time.Minute)
	user := newTestUser(t, repos, "bob@example.com")

	expired := &domain.Session{
		ID:        "expired-session",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, repos.Session.Create(ctx, expired))

	_, err := sessions.Validate(ctx, expired.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	_, err = repos.Session.GetByID(ctx, expired.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionRenewalInsideWindow(t *testing.T) {
	ctx := context.Background()
	repos, sessions := newSessionFixture(t, 24*time.Hour, 2*time.Hour)
	user := newTestUser(t, repos, "carol@example.com")

	session := &domain.Session{
		ID:        "almost-expired",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now().Add(-23 * time.Hour),
	}
	require.NoError(t, repos.Session.Create(ctx, session))

	_, renewed, err := sessions.ValidateWithSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Greater(t, time.Until(renewed.ExpiresAt), 23*time.Hour)

	stored, err := repos.Session.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Greater(t, time.Until(stored.ExpiresAt), 23*time.Hour)
}

func TestSessionNoRenewalOutsideWindow(t *testing.T) {
	ctx := context.Background()
	repos, sessions := newSessionFixture(t, 24*time.Hour, 2*time.Hour)
	user := newTestUser(t, repos, "dave@example.com")

	expiry := time.Now().Add(20 * time.Hour)
	session := &domain.Session{
		ID:        "fresh-session",
		UserID:    user.ID,
		ExpiresAt: expiry,
		CreatedAt: time.Now(),
	}
	require.NoError(t, repos.Session.Create(ctx, session))

	_, got, err := sessions.ValidateWithSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(expiry))
}

func TestSessionDanglingUserIsInternal(t *testing.T) {
	ctx := context.Background()
	repos, sessions := newSessionFixture(t, time.Hour, time.Minute)

	session := &domain.Session{
		ID:        "orphan-session",
		UserID:    "missing-user",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	require.NoError(t, repos.Session.Create(ctx, session))

	_, err := sessions.Validate(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestSessionLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repos, sessions := newSessionFixture(t, time.Hour, time.Minute)
	user := newTestUser(t, repos, "erin@example.com")

	session, err := sessions.Issue(ctx, user.ID, nil, nil)
	require.NoError(t, err)

	require.NoError(t, sessions.Logout(ctx, session.ID))
	require.NoError(t, sessions.Logout(ctx, session.ID))

	_, err = sessions.Validate(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestSessionRevokeAllOnlyTouchesOwner(t *testing.T) {
	ctx := context.Background()
	repos, sessions := newSessionFixture(t, time.Hour, time.Minute)
	alice := newTestUser(t, repos, "alice@example.com")
	bob := newTestUser(t, repos, "bob@example.com")

	s1, err := sessions.Issue(ctx, alice.ID, nil, nil)
	require.NoError(t, err)
	s2, err := sessions.Issue(ctx, alice.ID, nil, nil)
	require.NoError(t, err)
	s3, err := sessions.Issue(ctx, bob.ID, nil, nil)
	require.NoError(t, err)

	require.NoError(t, sessions.RevokeAll(ctx, alice.ID))

	assert.False(t, sessions.VerifyLight(ctx, s1.ID))
	assert.False(t, sessions.VerifyLight(ctx, s2.ID))
	assert.True(t, sessions.VerifyLight(ctx, s3.ID))
}

func TestSessionVerifyLightHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	repos, sessions := newSessionFixture(t, time.Hour, time.Minute)
	user := newTestUser(t, repos, "frank@example.com")

	expired := &domain.Session{
		ID:        "stale-session",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, repos.Session.Create(ctx, expired))

	assert.False(t, sessions.VerifyLight(ctx, expired.ID))

	// The expired row is still there: VerifyLight must not delete.
	_, err := repos.Session.GetByID(ctx, expired.ID)
	assert.NoError(t, err)
}

func TestSessionSweepExpired(t *testing.T) {
	ctx := context.Background()
	repos, sessions := newSessionFixture(t, time.Hour, time.Minute)
	user := newTestUser(t, repos, "grace@example.com")

	live, err := sessions.Issue(ctx, user.ID, nil, nil)
	require.NoError(t, err)

	expired := &domain.Session{
		ID:        "swept-session",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, repos.Session.Create(ctx, expired))

	require.NoError(t, sessions.SweepExpired(ctx))

	_, err = repos.Session.GetByID(ctx, expired.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.True(t, sessions.VerifyLight(ctx, live.ID))
}
