// Package passkey wraps go-webauthn behind the verifier port used by
// the service layer. Ceremony state is serialized to opaque JSON blobs
// so it can live in any challenge store.
package passkey

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/nimbusnote/auth-service/internal/domain"
)

// Config holds relying party settings.
type Config struct {
	RPID      string
	RPName    string
	RPOrigins []string
}

// Verifier implements service.CredentialVerifier on top of go-webauthn.
type Verifier struct {
	webAuthn *webauthn.WebAuthn
}

// NewVerifier creates a verifier for the given relying party.
func NewVerifier(cfg Config) (*Verifier, error) {
	webAuthn, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPName,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure webauthn: %w", err)
	}
	return &Verifier{webAuthn: webAuthn}, nil
}

// ceremonyState round-trips everything needed to finish a ceremony:
// the library session data plus the user snapshot it was started for.
type ceremonyState struct {
	User    ceremonyUserData     `json:"user"`
	Session webauthn.SessionData `json:"session"`
}

type ceremonyUserData struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	DisplayName string                `json:"display_name"`
	Credentials []webauthn.Credential `json:"credentials,omitempty"`
}

// ceremonyUser adapts a user snapshot to the webauthn.User interface.
type ceremonyUser struct {
	data ceremonyUserData
}

func (u *ceremonyUser) WebAuthnID() []byte                         { return []byte(u.data.ID) }
func (u *ceremonyUser) WebAuthnName() string                       { return u.data.Name }
func (u *ceremonyUser) WebAuthnDisplayName() string                { return u.data.DisplayName }
func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.data.Credentials }

func (v *Verifier) BeginRegistration(ctx context.Context, userID, email, name string) (json.RawMessage, []byte, error) {
	userData := ceremonyUserData{ID: userID, Name: email, DisplayName: name}
	user := &ceremonyUser{data: userData}

	creation, session, err := v.webAuthn.BeginRegistration(user,
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementPreferred),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin registration: %w", err)
	}

	challenge, err := json.Marshal(creation)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode creation options: %w", err)
	}
	state, err := json.Marshal(ceremonyState{User: userData, Session: *session})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode ceremony state: %w", err)
	}
	return challenge, state, nil
}

func (v *Verifier) FinishRegistration(ctx context.Context, state, response []byte) (string, []byte, error) {
	var ceremony ceremonyState
	if err := json.Unmarshal(state, &ceremony); err != nil {
		return "", nil, fmt.Errorf("failed to decode ceremony state: %w", err)
	}

	parsed, err := protocol.ParseCredentialCreationResponseBytes(response)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse credential response: %w", err)
	}

	credential, err := v.webAuthn.CreateCredential(&ceremonyUser{data: ceremony.User}, ceremony.Session, parsed)
	if err != nil {
		return "", nil, fmt.Errorf("failed to validate credential response: %w", err)
	}

	return EncodeCredentialID(credential.ID), credential.PublicKey, nil
}

func (v *Verifier) BeginAuthentication(ctx context.Context, passkeys []*domain.Passkey) (json.RawMessage, []byte, error) {
	if len(passkeys) == 0 {
		return nil, nil, fmt.Errorf("no credentials to authenticate against")
	}

	userData := ceremonyUserData{ID: passkeys[0].UserID}
	for _, pk := range passkeys {
		credential, err := credentialFromPasskey(pk)
		if err != nil {
			return nil, nil, err
		}
		userData.Credentials = append(userData.Credentials, credential)
	}

	assertion, session, err := v.webAuthn.BeginLogin(&ceremonyUser{data: userData})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin login: %w", err)
	}

	challenge, err := json.Marshal(assertion)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode assertion options: %w", err)
	}
	state, err := json.Marshal(ceremonyState{User: userData, Session: *session})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode ceremony state: %w", err)
	}
	return challenge, state, nil
}

func (v *Verifier) FinishAuthentication(ctx context.Context, state, response []byte) (int64, error) {
	var ceremony ceremonyState
	if err := json.Unmarshal(state, &ceremony); err != nil {
		return 0, fmt.Errorf("failed to decode ceremony state: %w", err)
	}

	parsed, err := protocol.ParseCredentialRequestResponseBytes(response)
	if err != nil {
		return 0, fmt.Errorf("failed to parse assertion response: %w", err)
	}

	credential, err := v.webAuthn.ValidateLogin(&ceremonyUser{data: ceremony.User}, ceremony.Session, parsed)
	if err != nil {
		return 0, fmt.Errorf("failed to validate login: %w", err)
	}

	// Counter regression is reported through the returned value; the
	// caller owns the replay decision.
	return int64(credential.Authenticator.SignCount), nil
}

func credentialFromPasskey(pk *domain.Passkey) (webauthn.Credential, error) {
	rawID, err := DecodeCredentialID(pk.CredentialID)
	if err != nil {
		return webauthn.Credential{}, fmt.Errorf("failed to decode credential id %s: %w", pk.CredentialID, err)
	}
	var transports []protocol.AuthenticatorTransport
	for _, t := range pk.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(t))
	}
	return webauthn.Credential{
		ID:        rawID,
		PublicKey: pk.PublicKey,
		Transport: transports,
		Authenticator: webauthn.Authenticator{
			SignCount: uint32(pk.SignCount),
		},
	}, nil
}

// EncodeCredentialID renders a raw credential id in the URL-safe form
// stored in the database and sent to clients.
func EncodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCredentialID reverses EncodeCredentialID.
func DecodeCredentialID(encoded string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(encoded)
}
