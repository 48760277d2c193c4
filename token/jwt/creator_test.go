package jwt_test

import (
	"testing"
	"time"

	"github.com/Urientropy/centavo/token"
	"github.com/Urientropy/centavo/token/jwt"
	"github.com/stretchr/testify/require"
)

var subject = jwt.Subject{UserID: 7, Email: "ana@example.com", FirstName: "Ana"}

func TestCreateAndVerify(t *testing.T) {
	c := jwt.NewCreator([]byte("secret"), time.Minute, time.Hour)

	access, err := c.CreateAccessToken(subject)
	require.NoError(t, err)
	refresh, err := c.CreateRefreshToken(subject)
	require.NoError(t, err)

	claims, err := c.Verify(access, jwt.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", claims["email"])

	_, err = c.Verify(refresh, jwt.TokenTypeRefresh)
	require.NoError(t, err)

	t.Run("wrong type", func(t *testing.T) {
		_, err := c.Verify(refresh, jwt.TokenTypeAccess)
		require.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := jwt.NewCreator([]byte("other"), time.Minute, time.Hour)
		_, err := other.Verify(access, jwt.TokenTypeAccess)
		require.Error(t, err)
	})

	t.Run("client side decode", func(t *testing.T) {
		decoded, err := token.DecodeClaims(access)
		require.NoError(t, err)
		require.Equal(t, "7", decoded.UserID)
		require.Equal(t, "Ana", decoded.FirstName)
	})
}

func TestExpiredAccessToken(t *testing.T) {
	c := jwt.NewCreator([]byte("secret"), time.Minute, time.Hour)

	access, err := c.CreateAccessTokenWithExpiry(subject, -time.Minute)
	require.NoError(t, err)

	_, err = c.Verify(access, jwt.TokenTypeAccess)
	require.Error(t, err)
}

func TestBlacklist(t *testing.T) {
	b := jwt.NewBlacklist()
	b.Add("gone", time.Now().Add(-time.Second))
	b.Add("kept", time.Now().Add(time.Hour))
	require.True(t, b.IsRevoked("gone"))

	b.Cleanup()
	require.False(t, b.IsRevoked("gone"))
	require.True(t, b.IsRevoked("kept"))
}
