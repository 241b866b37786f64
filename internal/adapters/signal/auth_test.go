package signal

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestTokenVerifier(t *testing.T) {
	v := NewTokenVerifier("s3cret")
	expires := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr error
	}{
		{
			name:  "valid",
			token: sign(t, jwt.SigningMethodHS256, []byte("s3cret"), jwt.RegisteredClaims{Subject: "alice", ExpiresAt: expires}),
			want:  "alice",
		},
		{
			name:    "wrong secret",
			token:   sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "alice", ExpiresAt: expires}),
			wantErr: jwt.ErrTokenSignatureInvalid,
		},
		{
			name:    "expired",
			token:   sign(t, jwt.SigningMethodHS256, []byte("s3cret"), jwt.RegisteredClaims{Subject: "alice", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}),
			wantErr: jwt.ErrTokenExpired,
		},
		{
			name:    "no subject",
			token:   sign(t, jwt.SigningMethodHS256, []byte("s3cret"), jwt.RegisteredClaims{ExpiresAt: expires}),
			wantErr: ErrMissingSubject,
		},
		{
			name:    "garbage",
			token:   "not-a-token",
			wantErr: jwt.ErrTokenMalformed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Username(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
