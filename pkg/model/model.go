// Package model defines the core domain types for confab.
package model

import (
	"errors"
	"fmt"
	"unicode"
)

const (
	MaxUsernameLength  = 32
	MaxGroupNameLength = 64
	MaxMessageLength   = 2000
)

var ErrUsernameEmpty = errors.New("username must not be empty")
var ErrUsernameTooLong = fmt.Errorf("username must not exceed %d characters", MaxUsernameLength)
var ErrUsernameInvalidChars = errors.New("username must contain only alphanumeric characters, underscores, or hyphens")

var ErrGroupNameEmpty = errors.New("group name must not be empty")
var ErrGroupNameTooLong = fmt.Errorf("group name must not exceed %d characters", MaxGroupNameLength)
var ErrGroupNameInvalidChars = errors.New("group name must not contain whitespace or control characters")

// SessionID identifies a single client connection for its lifetime.
// IDs are assigned sequentially on accept and never reused within a
// server process.
type SessionID uint64

// User is a credential store entry: a username and its stored password,
// which is either plaintext or an argon2id-encoded hash.
type User struct {
	Username string
	Password string
}

// Session is an authenticated connection (in-memory only). It exists
// from successful authentication until disconnect.
type Session struct {
	ID       SessionID
	Username string
}

// GroupInfo is a point-in-time view of a group for listings.
type GroupInfo struct {
	Name        string
	MemberCount int
}

// ValidateUsername checks that a username is 1-32 ASCII alphanumeric,
// underscore, or hyphen characters.
func ValidateUsername(name string) error {
	if len(name) == 0 {
		return ErrUsernameEmpty
	}
	if len(name) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			return ErrUsernameInvalidChars
		}
	}
	return nil
}

// ValidateGroupName checks that a group name is non-empty, at most 64
// characters, and free of whitespace and control characters. A name
// with an embedded space could never be addressed by /group_msg, which
// splits on the first space.
func ValidateGroupName(name string) error {
	if len(name) == 0 {
		return ErrGroupNameEmpty
	}
	if len(name) > MaxGroupNameLength {
		return ErrGroupNameTooLong
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrGroupNameInvalidChars
		}
	}
	return nil
}
