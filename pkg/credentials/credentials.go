// Package credentials implements the credential stores the server
// authenticates against. Stores are loaded once before the accept loop
// starts and are immutable for the process lifetime.
package credentials

import (
	"crypto/subtle"

	"github.com/marcwhitt/confab/pkg/crypto"
)

// Store answers username/password verification. Implementations must be
// safe for concurrent use; all shipped implementations are read-only
// after construction.
type Store interface {
	// Verify reports whether the username exists and the password
	// matches its stored entry.
	Verify(username, password string) bool

	// Count returns the number of loaded users.
	Count() int
}

// verifyStored checks a candidate password against a stored entry,
// which is either an argon2id encoded hash or plaintext.
func verifyStored(stored, password string) bool {
	if crypto.IsHashed(stored) {
		return crypto.VerifyPassword(password, stored)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// Static is a fixed in-memory store, used in tests and as the common
// backing for the file and SQLite loaders.
type Static struct {
	users map[string]string // username -> stored password
}

// NewStatic creates a store from a username -> password map.
func NewStatic(users map[string]string) *Static {
	copied := make(map[string]string, len(users))
	for name, pw := range users {
		copied[name] = pw
	}
	return &Static{users: copied}
}

// Verify implements Store.
func (s *Static) Verify(username, password string) bool {
	stored, ok := s.users[username]
	if !ok {
		return false
	}
	return verifyStored(stored, password)
}

// Count implements Store.
func (s *Static) Count() int {
	return len(s.users)
}
