package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-jwt-secret")

func TestIssueAndVerify(t *testing.T) {
	issuer := &Issuer{Secret: testSecret, TTL: time.Hour}

	token, exp, err := issuer.Issue("user-1", "admin", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, exp.After(time.Now()))

	claims, err := ClaimsFromToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "user", claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestVerifyExpired(t *testing.T) {
	issuer := &Issuer{Secret: testSecret, TTL: -time.Minute}

	token, _, err := issuer.Issue("user-1", "admin", "user")
	require.NoError(t, err)

	_, err = ClaimsFromToken(token, testSecret)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongKey(t *testing.T) {
	issuer := &Issuer{Secret: []byte("some-other-secret"), TTL: time.Hour}

	token, _, err := issuer.Issue("user-1", "admin", "user")
	require.NoError(t, err)

	_, err = ClaimsFromToken(token, testSecret)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyMalformed(t *testing.T) {
	for _, tokenStr := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := ClaimsFromToken(tokenStr, testSecret)
		require.ErrorIs(t, err, ErrMalformed, "token %q", tokenStr)
	}
}
