// Package jwt issues and verifies HS256 tokens shaped like the ones the API
// server hands out. It backs the in-process test server.
package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Subject is the identity a token is issued for.
type Subject struct {
	UserID    int
	Email     string
	FirstName string
}

// Creator handles token creation and verification
type Creator struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewCreator creates a new token creator
func NewCreator(secret []byte, accessExpiry, refreshExpiry time.Duration) *Creator {
	return &Creator{
		secret:        secret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// CreateAccessToken creates an access token carrying the user profile claims
func (c *Creator) CreateAccessToken(subject Subject) (string, error) {
	return c.CreateAccessTokenWithExpiry(subject, c.accessExpiry)
}

// CreateAccessTokenWithExpiry creates an access token with an explicit lifetime.
// A negative expiry yields an already expired token.
func (c *Creator) CreateAccessTokenWithExpiry(subject Subject, expiry time.Duration) (string, error) {
	claims := jwtlib.MapClaims{
		"token_type": TokenTypeAccess,
		"user_id":    subject.UserID,
		"email":      subject.Email,
		"first_name": subject.FirstName,
		"iat":        NowTimeFunc().Unix(),
		"exp":        NowTimeFunc().Add(expiry).Unix(),
		"jti":        uuid.New().String(),
	}
	return c.sign(claims)
}

// CreateRefreshToken creates a refresh token for the subject
func (c *Creator) CreateRefreshToken(subject Subject) (string, error) {
	claims := jwtlib.MapClaims{
		"token_type": TokenTypeRefresh,
		"user_id":    subject.UserID,
		"iat":        NowTimeFunc().Unix(),
		"exp":        NowTimeFunc().Add(c.refreshExpiry).Unix(),
		"jti":        uuid.New().String(),
	}
	return c.sign(claims)
}

// Verify checks the signature, expiry and token type and returns the claims.
func (c *Creator) Verify(rawToken, tokenType string) (jwtlib.MapClaims, error) {
	parsed, err := jwtlib.ParseWithClaims(rawToken, jwtlib.MapClaims{}, c.verificationKey,
		jwtlib.WithTimeFunc(NowTimeFunc),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("error extracting claims from token")
	}
	if got, _ := claims["token_type"].(string); got != tokenType {
		return nil, fmt.Errorf("token has wrong type %q", got)
	}
	return claims, nil
}

func (c *Creator) verificationKey(token *jwtlib.Token) (any, error) {
	if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return c.secret, nil
}

func (c *Creator) sign(claims jwtlib.MapClaims) (string, error) {
	signedToken, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signedToken, nil
}
