package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("test-secret", 15*time.Minute)

	tokenStr, err := issuer.Issue(42, "alice", true)
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	claims, err := issuer.Verify(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsAdmin)
}

func TestVerifyExpired(t *testing.T) {
	issuer := NewIssuer("test-secret", -time.Minute)

	tokenStr, err := issuer.Issue(1, "bob", false)
	require.NoError(t, err)

	_, err = issuer.Verify(tokenStr)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewIssuer("secret-a", 15*time.Minute)
	other := NewIssuer("secret-b", 15*time.Minute)

	tokenStr, err := issuer.Issue(1, "bob", false)
	require.NoError(t, err)

	_, err = other.Verify(tokenStr)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyMalformed(t *testing.T) {
	issuer := NewIssuer("test-secret", 15*time.Minute)

	for _, tokenStr := range []string{"", "garbage", "a.b.c"} {
		_, err := issuer.Verify(tokenStr)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", tokenStr)
	}
}
