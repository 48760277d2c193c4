package token

import (
	"strconv"
	"strings"
	"time"

	clienterrors "github.com/Urientropy/centavo/internal/errors"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims are the user facing claims carried by an access token.
type Claims struct {
	UserID    string
	Email     string
	FirstName string
	TokenType string
	ExpiresAt time.Time
	IssuedAt  time.Time
	JTI       string
}

// DecodeClaims extracts the claims from an access token without verifying its
// signature. The server is the only verifier; the client only reads identity
// and expiry.
func DecodeClaims(rawToken string) (Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return Claims{}, clienterrors.ErrInvalidToken
	}

	unverifiedToken, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return Claims{}, errors.Wrap(clienterrors.ErrInvalidToken, err.Error())
	}

	claims, ok := unverifiedToken.Claims.(jwtlib.MapClaims)
	if !ok {
		return Claims{}, errors.Wrap(clienterrors.ErrInvalidToken, "error extracting claims")
	}

	email, _ := claims["email"].(string)
	firstName, _ := claims["first_name"].(string)
	tokenType, _ := claims["token_type"].(string)
	jti, _ := claims["jti"].(string)

	c := Claims{
		UserID:    userID(claims["user_id"]),
		Email:     email,
		FirstName: firstName,
		TokenType: tokenType,
		JTI:       jti,
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	return c, nil
}

// Expired reports whether the token expiry lies before now. A token without
// an exp claim never expires client side.
func (c Claims) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

func userID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}
