package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("s3cret", 42, "CUSTOMER", 15, time.Now())
    require.NoError(t, err)

    claims, err := ParseAccessToken("s3cret", tok.Token)
    require.NoError(t, err)
    id, err := claims.UserID()
    require.NoError(t, err)
    assert.Equal(t, uint64(42), id)
    assert.Equal(t, "CUSTOMER", claims.Role)
}

func TestParseAccessTokenRejects(t *testing.T) {
    expired, err := NewAccessToken("s3cret", 1, "ADMIN", 1, time.Now().Add(-time.Hour))
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", expired.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)

    valid, err := NewAccessToken("s3cret", 1, "ADMIN", 15, time.Now())
    require.NoError(t, err)
    _, err = ParseAccessToken("other", valid.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)

    none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()})
    raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", raw)
    assert.ErrorIs(t, err, ErrInvalidToken)

    _, err = ParseAccessToken("s3cret", "garbage")
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
    hash, err := HashPassword("hunter22", bcrypt.MinCost)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(hash, "hunter22"))
    assert.False(t, VerifyPassword(hash, "hunter23"))
}
