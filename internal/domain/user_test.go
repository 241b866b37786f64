package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAnonymous(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"empty", "", true},
		{"generated", NewAnonymousName(), true},
		{"real name", "alice", false},
		{"uuid-like", "not-a-uuid-at-all", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAnonymous(tt.in))
		})
	}
}

func TestValidateUsername(t *testing.T) {
	assert.ErrorIs(t, ValidateUsername(""), ErrUsernameEmpty)
	assert.ErrorIs(t, ValidateUsername(strings.Repeat("a", MaxUsernameLen+1)), ErrUsernameTooLong)
	assert.NoError(t, ValidateUsername("alice"))
}

func TestNewOccupantHidesAnonymousNames(t *testing.T) {
	anon := NewOccupant("c1", NewAnonymousName())
	assert.Nil(t, anon.Username)

	named := NewOccupant("c2", "alice")
	if assert.NotNil(t, named.Username) {
		assert.Equal(t, "alice", *named.Username)
	}
}

func TestRoleContentClone(t *testing.T) {
	orig := RoleContent{Name: "cat", Body: []byte("meow")}
	cp := orig.Clone()
	cp.Body[0] = 'M'
	assert.Equal(t, []byte("meow"), orig.Body)
	assert.Nil(t, RoleContent{Name: "dog"}.Clone().Body)
}
