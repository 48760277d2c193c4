package token

import (
	"time"

	"golang.org/x/oauth2"
)

// Response is the body returned by the login, register and refresh endpoints.
type Response struct {
	// Access is the JWT used as the bearer credential.
	Access string `json:"access"`

	// Refresh is only present on login and register, or on refresh when the
	// server rotates refresh tokens.
	Refresh *string `json:"refresh,omitempty"`
}

// RefreshRequest is the body posted to the refresh and logout endpoints.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// OAuth2 converts an access/refresh pair into an oauth2.Token whose expiry
// comes from the access token claims.
func OAuth2(access, refresh string) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: refresh,
	}
	if claims, err := DecodeClaims(access); err == nil {
		tok.Expiry = claims.ExpiresAt
	}
	return tok
}

// ExpiresIn returns the time left before the access token expires, or zero if
// the token carries no expiry.
func ExpiresIn(access string, now time.Time) time.Duration {
	claims, err := DecodeClaims(access)
	if err != nil || claims.ExpiresAt.IsZero() {
		return 0
	}
	return claims.ExpiresAt.Sub(now)
}
