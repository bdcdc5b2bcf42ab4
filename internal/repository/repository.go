package repository

import (
	"github.com/nimbusnote/auth-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User      UserRepository
	Session   SessionRepository
	Identity  IdentityRepository
	Passkey   PasskeyRepository
	MagicLink MagicLinkRepository
}

// NewRepositories creates all postgres-backed repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db),
		Session:   NewSessionRepository(db),
		Identity:  NewIdentityRepository(db),
		Passkey:   NewPasskeyRepository(db),
		MagicLink: NewMagicLinkRepository(db),
	}
}
