package model

import (
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid simple", "alice", nil},
		{"valid with numbers", "user123", nil},
		{"valid with underscore", "my_user", nil},
		{"valid with hyphen", "my-user", nil},
		{"valid max length", strings.Repeat("a", MaxUsernameLength), nil},
		{"empty", "", ErrUsernameEmpty},
		{"too long", strings.Repeat("a", MaxUsernameLength+1), ErrUsernameTooLong},
		{"contains space", "has space", ErrUsernameInvalidChars},
		{"contains dot", "user.name", ErrUsernameInvalidChars},
		{"contains colon", "user:name", ErrUsernameInvalidChars},
		{"unicode letter", "ñoño", ErrUsernameInvalidChars},
		{"tab character", "user\tname", ErrUsernameInvalidChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if err != tt.wantErr {
				t.Errorf("ValidateUsername(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateGroupName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid simple", "team", nil},
		{"valid punctuation", "dev.ops#1", nil},
		{"valid max length", strings.Repeat("g", MaxGroupNameLength), nil},
		{"empty", "", ErrGroupNameEmpty},
		{"too long", strings.Repeat("g", MaxGroupNameLength+1), ErrGroupNameTooLong},
		{"contains space", "my group", ErrGroupNameInvalidChars},
		{"contains tab", "my\tgroup", ErrGroupNameInvalidChars},
		{"contains newline", "my\ngroup", ErrGroupNameInvalidChars},
		{"control char", "grp\x00", ErrGroupNameInvalidChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGroupName(tt.input)
			if err != tt.wantErr {
				t.Errorf("ValidateGroupName(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
