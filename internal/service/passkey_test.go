package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/repository"
)

// fakeVerifier stands in for the WebAuthn library. It hands back canned
// values so the tests exercise the orchestration, not the cryptography.
type fakeVerifier struct {
	credentialID string
	publicKey    []byte
	signCount    int64
}

func (f *fakeVerifier) BeginRegistration(ctx context.Context, userID, email, name string) (json.RawMessage, []byte, error) {
	return json.RawMessage(`{"challenge":"reg"}`), []byte("reg-state:" + userID), nil
}

func (f *fakeVerifier) FinishRegistration(ctx context.Context, state, response []byte) (string, []byte, error) {
	return f.credentialID, f.publicKey, nil
}

func (f *fakeVerifier) BeginAuthentication(ctx context.Context, passkeys []*domain.Passkey) (json.RawMessage, []byte, error) {
	return json.RawMessage(`{"challenge":"auth"}`), []byte("auth-state"), nil
}

func (f *fakeVerifier) FinishAuthentication(ctx context.Context, state, response []byte) (int64, error) {
	return f.signCount, nil
}

func newPasskeyFixture(t *testing.T, verifier CredentialVerifier) (*repository.Repositories, PasskeyService) {
	t.Helper()
	repos := repository.NewMemoryRepositories()
	sessions := NewSessionService(repos.User, repos.Session, zap.NewNop(), time.Hour, time.Minute)
	svc := NewPasskeyService(repos.User, repos.Passkey, NewMemoryChallengeStore(), verifier, sessions, 5*time.Minute)
	return repos, svc
}

func seedPasskey(t *testing.T, repos *repository.Repositories, userID, credentialID string, signCount int64) *domain.Passkey {
	t.Helper()
	pk := &domain.Passkey{
		UserID:       userID,
		CredentialID: credentialID,
		PublicKey:    []byte("pk"),
		SignCount:    signCount,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, repos.Passkey.Create(context.Background(), pk))
	return pk
}

func TestPasskeyStartRegistrationUnknownUser(t *testing.T) {
	ctx := context.Background()
	_, svc := newPasskeyFixture(t, &fakeVerifier{})

	_, err := svc.StartRegistration(ctx, "no-such-user")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestPasskeyFreeTrialCap(t *testing.T) {
	ctx := context.Background()
	repos, svc := newPasskeyFixture(t, &fakeVerifier{})
	user := newTestUser(t, repos, "capped@example.com")

	seedPasskey(t, repos, user.ID, "cred-1", 0)
	seedPasskey(t, repos, user.ID, "cred-2", 0)

	_, err := svc.StartRegistration(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPasskeyPaidPlanHasNoCap(t *testing.T) {
	ctx := context.Background()
	repos, svc := newPasskeyFixture(t, &fakeVerifier{})
	user := newTestUser(t, repos, "pro@example.com")
	user.Plan = domain.PlanPremium
	require.NoError(t, repos.User.Update(ctx, user))

	for i := 0; i < 5; i++ {
		seedPasskey(t, repos, user.ID, "cred-"+string(rune('a'+i)), 0)
	}

	challenge, err := svc.StartRegistration(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, challenge.UserID)
}

func TestPasskeyFinishRegistrationWithoutStart(t *testing.T) {
	ctx := context.Background()
	repos, svc := newPasskeyFixture(t, &fakeVerifier{credentialID: "cred-x", publicKey: []byte("pk")})
	user := newTestUser(t, repos, "eager@example.com")

	_, err := svc.FinishRegistration(ctx, user.ID, json.RawMessage(`{}`), nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestPasskeyRegistrationRoundTrip(t *testing.T) {
	ctx := context.Background()
	repos, svc := newPasskeyFixture(t, &fakeVerifier{credentialID: "cred-new", publicKey: []byte("pk-bytes")})
	user := newTestUser(t, repos, "newkey@example.com")

	_, err := svc.StartRegistration(ctx, user.ID)
	require.NoError(t, err)

	device := "MacBook"
	passkey, err := svc.FinishRegistration(ctx, user.ID, json.RawMessage(`{}`), []string{"internal"}, &device)
	require.NoError(t, err)
	assert.Equal(t, "cred-new", passkey.CredentialID)
	assert.Equal(t, int64(0), passkey.SignCount)
	require.NotNil(t, passkey.DeviceName)
	assert.Equal(t, "MacBook", *passkey.DeviceName)

	// Ceremony state is single use.
	_, err = svc.FinishRegistration(ctx, user.ID, json.RawMessage(`{}`), nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestPasskeyStartAuthenticationUnknownEmail(t *testing.T) {
	ctx := context.Background()
	_, svc := newPasskeyFixture(t, &fakeVerifier{})

	_, err := svc.StartAuthentication(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestPasskeyStartAuthenticationNoCredentials(t *testing.T) {
	ctx := context.Background()
	repos, svc := newPasskeyFixture(t, &fakeVerifier{})
	newTestUser(t, repos, "keyless@example.com")

	_, err := svc.StartAuthentication(ctx, "keyless@example.com")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestPasskeyStartAuthenticationReturnsCredentialIDs(t *testing.T) {
	ctx := context.Background()
	repos, svc := newPasskeyFixture(t, &fakeVerifier{})
	user := newTestUser(t, repos, "holder@example.com")
	seedPasskey(t, repos, user.ID, "cred-1", 3)
	seedPasskey(t, repos, user.ID, "cred-2", 8)

	challenge, err := svc.StartAuthentication(ctx, "Holder@Example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cred-1", "cred-2"}, challenge.CredentialIDs)
}

func TestPasskeyAuthenticationAdvancesCounter(t *testing.T) {
	ctx := context.Background()
	verifier := &fakeVerifier{signCount: 6}
	repos, svc := newPasskeyFixture(t, verifier)
	user := newTestUser(t, repos, "signer@example.com")
	seedPasskey(t, repos, user.ID, "cred-9", 5)

	_, err := svc.StartAuthentication(ctx, "signer@example.com")
	require.NoError(t, err)

	signedIn, session, err := svc.FinishAuthentication(ctx, "cred-9", json.RawMessage(`{}`), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, user.ID, signedIn.ID)
	assert.Equal(t, user.ID, session.UserID)
	require.NotNil(t, signedIn.LastSignInMethod)
	assert.Equal(t, domain.SignInPasskey, *signedIn.LastSignInMethod)

	stored, err := repos.Passkey.GetByCredentialID(ctx, "cred-9")
	require.NoError(t, err)
	assert.Equal(t, int64(6), stored.SignCount)
}

func TestPasskeyStaleCounterIsReplay(t *testing.T) {
	ctx := context.Background()
	verifier := &fakeVerifier{signCount: 5}
	repos, svc := newPasskeyFixture(t, verifier)
	user := newTestUser(t, repos, "cloned@example.com")
	seedPasskey(t, repos, user.ID, "cred-7", 5)

	_, err := svc.StartAuthentication(ctx, "cloned@example.com")
	require.NoError(t, err)

	_, _, err = svc.FinishAuthentication(ctx, "cred-7", json.RawMessage(`{}`), nil, nil)
	assert.ErrorIs(t, err, domain.ErrReplayDetected)

	stored, err := repos.Passkey.GetByCredentialID(ctx, "cred-7")
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.SignCount)
}

func TestPasskeyZeroCounterAuthenticatorRejected(t *testing.T) {
	ctx := context.Background()
	verifier := &fakeVerifier{signCount: 0}
	repos, svc := newPasskeyFixture(t, verifier)
	user := newTestUser(t, repos, "zero@example.com")
	seedPasskey(t, repos, user.ID, "cred-0", 0)

	_, err := svc.StartAuthentication(ctx, "zero@example.com")
	require.NoError(t, err)

	_, _, err = svc.FinishAuthentication(ctx, "cred-0", json.RawMessage(`{}`), nil, nil)
	assert.ErrorIs(t, err, domain.ErrReplayDetected)
}

func TestPasskeyFinishAuthenticationUnknownCredential(t *testing.T) {
	ctx := context.Background()
	_, svc := newPasskeyFixture(t, &fakeVerifier{})

	_, _, err := svc.FinishAuthentication(ctx, "ghost-cred", json.RawMessage(`{}`), nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}
