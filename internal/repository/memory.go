package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nimbusnote/auth-service/internal/domain"
)

// memoryStore is an in-memory implementation of every repository
// interface, used by unit tests and local development. It mirrors the
// postgres implementations' semantics, including the compare-and-set
// behavior of MarkUsed and UpdateSignCount and the uniqueness
// constraints the services rely on.
type memoryStore struct {
	mu         sync.Mutex
	users      map[string]domain.User           // by id
	usersEmail map[string]string                // email -> id
	sessions   map[string]domain.Session        // by id
	identities map[string]domain.Identity       // by provider|provider_user_id
	passkeys   map[string]domain.Passkey        // by credential_id
	magicLinks map[string]domain.MagicLinkToken // by email
}

// NewMemoryRepositories creates repositories backed by a shared in-memory store.
func NewMemoryRepositories() *Repositories {
	s := &memoryStore{
		users:      make(map[string]domain.User),
		usersEmail: make(map[string]string),
		sessions:   make(map[string]domain.Session),
		identities: make(map[string]domain.Identity),
		passkeys:   make(map[string]domain.Passkey),
		magicLinks: make(map[string]domain.MagicLinkToken),
	}
	return &Repositories{
		User:      (*memoryUsers)(s),
		Session:   (*memorySessions)(s),
		Identity:  (*memoryIdentities)(s),
		Passkey:   (*memoryPasskeys)(s),
		MagicLink: (*memoryMagicLinks)(s),
	}
}

func identityKey(provider domain.OAuthProvider, providerUserID string) string {
	return string(provider) + "|" + providerUserID
}

type memoryUsers memoryStore

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.usersEmail[user.Email]; taken {
		return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	m.users[user.ID] = *user
	m.usersEmail[user.Email] = user.ID
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}
	return &user, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.usersEmail[email]
	if !ok {
		return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
	}
	user := m.users[id]
	return &user, nil
}

func (m *memoryUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.users[user.ID]
	if !ok {
		return fmt.Errorf("user with id %s not found: %w", user.ID, ErrNotFound)
	}
	if other, taken := m.usersEmail[user.Email]; taken && other != user.ID {
		return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
	}
	if prev.Email != user.Email {
		delete(m.usersEmail, prev.Email)
		m.usersEmail[user.Email] = user.ID
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.users[id]; ok {
		delete(m.usersEmail, user.Email)
		delete(m.users, id)
	}
	return nil
}

type memorySessions memoryStore

func (m *memorySessions) Create(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *memorySessions) GetByID(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", ErrNotFound)
	}
	return &session, nil
}

func (m *memorySessions) Update(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.ID]; !ok {
		return fmt.Errorf("session not found: %w", ErrNotFound)
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *memorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

func (m *memorySessions) DeleteByUserID(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *memorySessions) DeleteExpired(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, session := range m.sessions {
		if session.ExpiresAt.Before(now) {
			delete(m.sessions, id)
		}
	}
	return nil
}

type memoryIdentities memoryStore

func (m *memoryIdentities) Create(_ context.Context, identity *domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := identityKey(identity.Provider, identity.ProviderUserID)
	if _, taken := m.identities[key]; taken {
		return fmt.Errorf("identity for %s already exists: %w", identity.Provider, ErrDuplicateIdentity)
	}
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}
	m.identities[key] = *identity
	return nil
}

func (m *memoryIdentities) GetByProvider(_ context.Context, provider domain.OAuthProvider, providerUserID string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, ok := m.identities[identityKey(provider, providerUserID)]
	if !ok {
		return nil, fmt.Errorf("identity not found: %w", ErrNotFound)
	}
	return &identity, nil
}

func (m *memoryIdentities) GetByUserID(_ context.Context, userID string) ([]*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var identities []*domain.Identity
	for _, identity := range m.identities {
		if identity.UserID == userID {
			i := identity
			identities = append(identities, &i)
		}
	}
	return identities, nil
}

func (m *memoryIdentities) DeleteByUserID(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, identity := range m.identities {
		if identity.UserID == userID {
			delete(m.identities, key)
		}
	}
	return nil
}

type memoryPasskeys memoryStore

func (m *memoryPasskeys) Create(_ context.Context, passkey *domain.Passkey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.passkeys[passkey.CredentialID]; taken {
		return fmt.Errorf("passkey %s already registered: %w", passkey.CredentialID, ErrDuplicateCredential)
	}
	if passkey.ID == "" {
		passkey.ID = uuid.New().String()
	}
	if passkey.CreatedAt.IsZero() {
		passkey.CreatedAt = time.Now()
	}
	m.passkeys[passkey.CredentialID] = *passkey
	return nil
}

func (m *memoryPasskeys) GetByCredentialID(_ context.Context, credentialID string) (*domain.Passkey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	passkey, ok := m.passkeys[credentialID]
	if !ok {
		return nil, fmt.Errorf("passkey not found: %w", ErrNotFound)
	}
	return &passkey, nil
}

func (m *memoryPasskeys) GetByUserID(_ context.Context, userID string) ([]*domain.Passkey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var passkeys []*domain.Passkey
	for _, passkey := range m.passkeys {
		if passkey.UserID == userID {
			p := passkey
			passkeys = append(passkeys, &p)
		}
	}
	return passkeys, nil
}

func (m *memoryPasskeys) UpdateSignCount(_ context.Context, credentialID string, oldCount, newCount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	passkey, ok := m.passkeys[credentialID]
	if !ok || passkey.SignCount != oldCount {
		return fmt.Errorf("passkey with expected sign count not found: %w", ErrNotFound)
	}
	now := time.Now()
	passkey.SignCount = newCount
	passkey.LastUsedAt = &now
	m.passkeys[credentialID] = passkey
	return nil
}

func (m *memoryPasskeys) DeleteByUserID(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, passkey := range m.passkeys {
		if passkey.UserID == userID {
			delete(m.passkeys, id)
		}
	}
	return nil
}

type memoryMagicLinks memoryStore

func (m *memoryMagicLinks) Save(_ context.Context, token *domain.MagicLinkToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	m.magicLinks[token.Email] = *token
	return nil
}

func (m *memoryMagicLinks) GetByEmail(_ context.Context, email string) (*domain.MagicLinkToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.magicLinks[email]
	if !ok {
		return nil, fmt.Errorf("magic link token not found: %w", ErrNotFound)
	}
	return &token, nil
}

func (m *memoryMagicLinks) MarkUsed(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.magicLinks[email]
	if !ok || token.Used {
		return fmt.Errorf("unused magic link token not found: %w", ErrNotFound)
	}
	token.Used = true
	m.magicLinks[email] = token
	return nil
}

func (m *memoryMagicLinks) DeleteByEmail(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.magicLinks, email)
	return nil
}

func (m *memoryMagicLinks) DeleteExpired(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for email, token := range m.magicLinks {
		if token.ExpiresAt.Before(now) {
			delete(m.magicLinks, email)
		}
	}
	return nil
}
