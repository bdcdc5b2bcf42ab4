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

func newAccountFixture(t *testing.T) (*repository.Repositories, SessionService, AccountService) {
	t.Helper()
	repos := repository.NewMemoryRepositories()
	sessions := NewSessionService(repos.User, repos.Session, zap.NewNop(), time.Hour, time.Minute)
	svc := NewAccountService(repos.User, repos.Session, repos.Identity, repos.Passkey, repos.MagicLink, sessions, zap.NewNop())
	return repos, sessions, svc
}

func strPtr(s string) *string { return &s }

func TestUpdateProfileNormalizesPhone(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newAccountFixture(t)
	user := newTestUser(t, repos, "phone@example.com")

	updated, err := svc.UpdateProfile(ctx, user.ID, nil, strPtr("(415) 555-2671"))
	require.NoError(t, err)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "+14155552671", *updated.Phone)
	assert.Equal(t, "Test User", updated.Name)
}

func TestUpdateProfileClearsPhone(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newAccountFixture(t)
	user := newTestUser(t, repos, "clear@example.com")

	_, err := svc.UpdateProfile(ctx, user.ID, nil, strPtr("4155552671"))
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, nil, strPtr(""))
	require.NoError(t, err)
	assert.Nil(t, updated.Phone)
}

func TestUpdateProfileRejectsBadPhone(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newAccountFixture(t)
	user := newTestUser(t, repos, "badphone@example.com")

	_, err := svc.UpdateProfile(ctx, user.ID, nil, strPtr("12"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateProfileRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newAccountFixture(t)
	user := newTestUser(t, repos, "noname@example.com")

	_, err := svc.UpdateProfile(ctx, user.ID, strPtr("   "), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdatePlan(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newAccountFixture(t)
	user := newTestUser(t, repos, "upgrade@example.com")

	updated, err := svc.UpdatePlan(ctx, user.ID, domain.PlanPremium)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPremium, updated.Plan)

	_, err = svc.UpdatePlan(ctx, user.ID, domain.Plan("platinum"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateEmailRevokesSessions(t *testing.T) {
	ctx := context.Background()
	repos, sessions, svc := newAccountFixture(t)
	user := newTestUser(t, repos, "before@example.com")

	session, err := sessions.Issue(ctx, user.ID, nil, nil)
	require.NoError(t, err)

	updated, err := svc.UpdateEmail(ctx, user.ID, "After@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "after@example.com", updated.Email)
	assert.False(t, sessions.VerifyLight(ctx, session.ID))
}

func TestUpdateEmailSameAddressIsNoOp(t *testing.T) {
	ctx := context.Background()
	repos, sessions, svc := newAccountFixture(t)
	user := newTestUser(t, repos, "same@example.com")

	session, err := sessions.Issue(ctx, user.ID, nil, nil)
	require.NoError(t, err)

	_, err = svc.UpdateEmail(ctx, user.ID, "Same@Example.com")
	require.NoError(t, err)
	assert.True(t, sessions.VerifyLight(ctx, session.ID))
}

func TestUpdateEmailConflict(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newAccountFixture(t)
	newTestUser(t, repos, "taken@example.com")
	user := newTestUser(t, repos, "wants@example.com")

	_, err := svc.UpdateEmail(ctx, user.ID, "taken@example.com")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdateEmailRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	repos, _, svc := newAccountFixture(t)
	user := newTestUser(t, repos, "valid@example.com")

	_, err := svc.UpdateEmail(ctx, user.ID, "not an email")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	repos, sessions, svc := newAccountFixture(t)
	user := newTestUser(t, repos, "doomed@example.com")

	session, err := sessions.Issue(ctx, user.ID, nil, nil)
	require.NoError(t, err)
	require.NoError(t, repos.Identity.Create(ctx, &domain.Identity{
		UserID:         user.ID,
		Provider:       domain.ProviderGoogle,
		ProviderUserID: "doomed-sub",
		Email:          user.Email,
		CreatedAt:      time.Now(),
	}))
	seedPasskey(t, repos, user.ID, "doomed-cred", 0)
	require.NoError(t, repos.MagicLink.Save(ctx, &domain.MagicLinkToken{
		Email:     user.Email,
		TokenHash: hashToken("secret"),
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	require.NoError(t, svc.DeleteAccount(ctx, user.ID))

	_, err = repos.User.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.False(t, sessions.VerifyLight(ctx, session.ID))

	_, err = repos.Identity.GetByProvider(ctx, domain.ProviderGoogle, "doomed-sub")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repos.Passkey.GetByCredentialID(ctx, "doomed-cred")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repos.MagicLink.GetByEmail(ctx, user.Email)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// A second delete finds nothing to authenticate against.
	err = svc.DeleteAccount(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}
