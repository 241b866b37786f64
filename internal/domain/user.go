// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxConnIDLen   = 36
	MaxUsernameLen = 64
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// ConnID identifies one live client connection for its whole lifetime.
type ConnID string

// NewConnID returns a fresh random connection id.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

// NewAnonymousName returns a placeholder username for a client that has not logged in.
func NewAnonymousName() string {
	return uuid.NewString()
}

// IsAnonymous reports whether name is a placeholder produced for a client that has not logged in.
func IsAnonymous(name string) bool {
	if name == "" {
		return true
	}
	_, err := uuid.Parse(name)
	return err == nil
}

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
