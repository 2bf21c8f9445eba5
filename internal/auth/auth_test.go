package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Admin@123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$2a$10$"), "unexpected hash format %q", hash)
	assert.NotContains(t, hash, "Admin@123")
	assert.True(t, ComparePassword("Admin@123", hash))
	assert.False(t, ComparePassword("admin@123", hash))
	assert.False(t, ComparePassword("Admin@123", "not-a-hash"))
}

func TestHashPassword_Salted(t *testing.T) {
	t.Parallel()

	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashPassword_Empty(t *testing.T) {
	t.Parallel()

	_, err := HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func fixedTokens(secret string, at time.Time) *Tokens {
	tk := NewTokens(secret, 7*24*time.Hour)
	tk.now = func() time.Time { return at }
	return tk
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tk := fixedTokens("s3cret", issued)

	tok, err := tk.Issue(42, "admin")
	require.NoError(t, err)

	claims, err := tk.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AdminID)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.ExpiresAt.Time.Equal(issued.Add(7*24*time.Hour)), "exp = %v", claims.ExpiresAt.Time)
	assert.True(t, claims.IssuedAt.Time.Equal(issued), "iat = %v", claims.IssuedAt.Time)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tok, err := fixedTokens("s3cret", issued).Issue(1, "admin")
	require.NoError(t, err)

	later := fixedTokens("s3cret", issued.Add(7*24*time.Hour+time.Second))
	_, err = later.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)

	justBefore := fixedTokens("s3cret", issued.Add(7*24*time.Hour-time.Minute))
	_, err = justBefore.Verify(tok)
	assert.NoError(t, err)
}

func TestVerify_Invalid(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tok, err := fixedTokens("right", now).Issue(1, "admin")
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{AdminID: 1}).SignedString([]byte("right"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		AdminID:          1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := []struct {
		name  string
		tk    *Tokens
		token string
	}{
		{"wrong secret", fixedTokens("wrong", now), tok},
		{"malformed", fixedTokens("right", now), "not.a.jwt"},
		{"garbage", fixedTokens("right", now), "abc"},
		{"no expiry", fixedTokens("right", now), noExp},
		{"alg none", fixedTokens("right", now), none},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.tk.Verify(tc.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}
