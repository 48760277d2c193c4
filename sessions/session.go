package sessions

import (
	"context"
	"encoding/json"

	clienterrors "github.com/Urientropy/centavo/internal/errors"
	"github.com/pkg/errors"
)

// Persisted storage keys.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// User is the profile derived from the access token claims.
type User struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
}

// Session holds the credentials of the signed in user. User is set if and
// only if AccessToken is set.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}

// Repo is a durable string key/value store, the client side equivalent of
// browser local storage. Get returns errors.ErrNotFound for a missing key.
type Repo interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Load reads the persisted session. Missing keys leave the matching field
// empty; a corrupt user entry is dropped.
func Load(ctx context.Context, repo Repo) (Session, error) {
	var s Session
	var err error

	if s.AccessToken, err = getOptional(ctx, repo, KeyAccessToken); err != nil {
		return Session{}, errors.Wrap(err, "[sessions.Load] accessToken")
	}
	if s.RefreshToken, err = getOptional(ctx, repo, KeyRefreshToken); err != nil {
		return Session{}, errors.Wrap(err, "[sessions.Load] refreshToken")
	}

	rawUser, err := getOptional(ctx, repo, KeyUser)
	if err != nil {
		return Session{}, errors.Wrap(err, "[sessions.Load] user")
	}
	if rawUser != "" {
		var u User
		if json.Unmarshal([]byte(rawUser), &u) == nil {
			s.User = &u
		}
	}
	return s, nil
}

// Save persists every field of the session, removing keys for empty fields.
func Save(ctx context.Context, repo Repo, s Session) error {
	if err := setOrRemove(ctx, repo, KeyAccessToken, s.AccessToken); err != nil {
		return errors.Wrap(err, "[sessions.Save] accessToken")
	}
	if err := setOrRemove(ctx, repo, KeyRefreshToken, s.RefreshToken); err != nil {
		return errors.Wrap(err, "[sessions.Save] refreshToken")
	}

	if s.User == nil {
		if err := repo.Remove(ctx, KeyUser); err != nil {
			return errors.Wrap(err, "[sessions.Save] user")
		}
		return nil
	}
	rawUser, err := json.Marshal(s.User)
	if err != nil {
		return errors.Wrap(err, "[sessions.Save] marshal user")
	}
	if err := repo.Set(ctx, KeyUser, string(rawUser)); err != nil {
		return errors.Wrap(err, "[sessions.Save] user")
	}
	return nil
}

// Clear removes all three session keys. Every key is attempted even if an
// earlier removal fails.
func Clear(ctx context.Context, repo Repo) error {
	var firstErr error
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		if err := repo.Remove(ctx, key); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "[sessions.Clear] %s", key)
		}
	}
	return firstErr
}

func getOptional(ctx context.Context, repo Repo, key string) (string, error) {
	v, err := repo.Get(ctx, key)
	if clienterrors.Is(err, clienterrors.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func setOrRemove(ctx context.Context, repo Repo, key, value string) error {
	if value == "" {
		return repo.Remove(ctx, key)
	}
	return repo.Set(ctx, key, value)
}
