package session

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.StandardClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("backend-owned-secret"))
	require.NoError(t, err)
	return signed
}

func TestExpiresAtReadsExpClaim(t *testing.T) {
	exp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{Token: signedToken(t, jwt.StandardClaims{ExpiresAt: exp.Unix()})}

	got, err := s.ExpiresAt()
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))
}

func TestExpiredAt(t *testing.T) {
	exp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{Token: signedToken(t, jwt.StandardClaims{ExpiresAt: exp.Unix()})}

	assert.False(t, s.ExpiredAt(exp.Add(-time.Minute)))
	assert.True(t, s.ExpiredAt(exp.Add(time.Minute)))
}

func TestTokenWithoutExpNeverExpiresLocally(t *testing.T) {
	s := &Session{Token: signedToken(t, jwt.StandardClaims{Subject: "u1"})}
	assert.False(t, s.ExpiredAt(time.Now().Add(100*365*24*time.Hour)))
}

func TestMalformedTokenTreatedAsExpired(t *testing.T) {
	s := &Session{Token: "not-a-jwt"}
	assert.True(t, s.ExpiredAt(time.Now()))

	_, err := s.ExpiresAt()
	assert.Error(t, err)
}
