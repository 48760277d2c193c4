// Package auth owns the user session: it signs in, registers, silently
// renews the access token and signs out, persisting the tokens and the
// derived user profile through a sessions.Repo.
package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Urientropy/centavo/apiclient"
	clienterrors "github.com/Urientropy/centavo/internal/errors"
	"github.com/Urientropy/centavo/sessions"
	"github.com/Urientropy/centavo/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Service holds the session and implements apiclient.Session for the client
// it owns.
type Service struct {
	mu            sync.RWMutex
	session       sessions.Session
	repo          sessions.Repo
	nav           Navigator
	client        *apiclient.Client
	validator     *Validator
	clientOptions []apiclient.Option
	nowTime       func() time.Time
}

var _ apiclient.Session = (*Service)(nil)

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithClientOptions passes options through to the API client.
func WithClientOptions(opts ...apiclient.Option) ServiceOption {
	return func(s *Service) {
		s.clientOptions = append(s.clientOptions, opts...)
	}
}

func WithValidator(v *Validator) ServiceOption {
	return func(s *Service) {
		s.validator = v
	}
}

// NewService restores the persisted session and builds the API client that
// authenticates through it.
func NewService(ctx context.Context, baseURL string, repo sessions.Repo, nav Navigator, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] session repo is required")
	}
	if nav == nil {
		return nil, errors.New("[NewService] navigator is required")
	}

	s := &Service{
		repo:      repo,
		nav:       nav,
		validator: NewValidator(),
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	client, err := apiclient.New(baseURL, s, s.clientOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewService] api client")
	}
	s.client = client

	persisted, err := sessions.Load(ctx, repo)
	if err != nil {
		return nil, errors.Wrap(err, "[NewService] load session")
	}
	s.session = restore(persisted)
	return s, nil
}

// restore re-establishes the user/access token invariant on a persisted
// session. The user is always re-derived from the token claims.
func restore(s sessions.Session) sessions.Session {
	if s.AccessToken == "" {
		s.User = nil
		return s
	}
	claims, err := token.DecodeClaims(s.AccessToken)
	if err != nil {
		log.Warn().Err(err).Msg("discarding unreadable persisted access token")
		s.AccessToken = ""
		s.User = nil
		return s
	}
	s.User = userFromClaims(claims)
	return s
}

func userFromClaims(c token.Claims) *sessions.User {
	return &sessions.User{Email: c.Email, FirstName: c.FirstName}
}

// Client returns the API client authenticated by this session.
func (s *Service) Client() *apiclient.Client {
	return s.client
}

func (s *Service) Validator() *Validator {
	return s.validator
}

// Session returns a copy of the current session.
func (s *Service) Session() sessions.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.session
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAuthenticated()
}

// Token implements oauth2.TokenSource.
func (s *Service) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session.AccessToken == "" {
		return nil, clienterrors.ErrNotLoggedIn
	}
	return token.OAuth2(s.session.AccessToken, s.session.RefreshToken), nil
}

// AccessTokenExpired reports whether the held access token is past its expiry.
func (s *Service) AccessTokenExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claims, err := token.DecodeClaims(s.session.AccessToken)
	if err != nil {
		return true
	}
	return claims.Expired(s.nowTime())
}

// Login posts the credentials, establishes the session and navigates to the
// dashboard. Server errors are returned as they come from the client.
func (s *Service) Login(ctx context.Context, creds Credentials) error {
	if err := s.validator.Validate(creds); err != nil {
		return err
	}

	var resp token.Response
	if err := s.client.Post(ctx, apiclient.PathLogin, creds, &resp); err != nil {
		return err
	}
	if err := s.establish(ctx, resp); err != nil {
		return errors.Wrap(err, "[Service.Login] establish session")
	}

	log.Info().Str("email", creds.Email).Msg("logged in")
	s.nav.Navigate(RouteDashboard)
	return nil
}

// Register creates the tenant and user, then behaves like Login.
func (s *Service) Register(ctx context.Context, reg Registration) error {
	if err := s.validator.Validate(reg); err != nil {
		return err
	}

	var resp token.Response
	if err := s.client.Post(ctx, apiclient.PathRegister, reg, &resp); err != nil {
		return err
	}
	if err := s.establish(ctx, resp); err != nil {
		return errors.Wrap(err, "[Service.Register] establish session")
	}

	log.Info().Str("email", reg.Email).Str("tenant", reg.TenantName).Msg("registered")
	s.nav.Navigate(RouteDashboard)
	return nil
}

func (s *Service) establish(ctx context.Context, resp token.Response) error {
	claims, err := token.DecodeClaims(resp.Access)
	if err != nil {
		return err
	}

	next := sessions.Session{
		AccessToken: resp.Access,
		User:        userFromClaims(claims),
	}
	if resp.Refresh != nil {
		next.RefreshToken = *resp.Refresh
	}

	s.mu.Lock()
	s.session = next
	s.mu.Unlock()

	return sessions.Save(ctx, s.repo, next)
}

// RefreshToken exchanges the refresh token for a new access token and
// returns it. Without a refresh token it fails with ErrNoRefreshToken and
// makes no call. Any failure of the refresh call logs the user out before
// the error is returned.
func (s *Service) RefreshToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	refresh := s.session.RefreshToken
	s.mu.RUnlock()

	if refresh == "" {
		return "", clienterrors.ErrNoRefreshToken
	}

	var resp token.Response
	err := s.client.Post(ctx, apiclient.PathRefresh, token.RefreshRequest{Refresh: refresh}, &resp)
	var claims token.Claims
	if err == nil {
		claims, err = token.DecodeClaims(resp.Access)
	}
	if err != nil {
		log.Warn().Err(err).Msg("token refresh failed, logging out")
		if logoutErr := s.Logout(ctx); logoutErr != nil {
			log.Error().Err(logoutErr).Msg("logout after failed refresh")
		}
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A logout or a new login while the call was in flight wins.
	if s.session.RefreshToken != refresh {
		log.Debug().Msg("session changed during refresh, discarding new token")
		return "", clienterrors.ErrNotLoggedIn
	}

	s.session.AccessToken = resp.Access
	if user := userFromClaims(claims); s.session.User == nil || *s.session.User != *user {
		s.session.User = user
	}
	if resp.Refresh != nil && *resp.Refresh != "" {
		s.session.RefreshToken = *resp.Refresh
	}
	if err := sessions.Save(ctx, s.repo, s.session); err != nil {
		return "", errors.Wrap(err, "[Service.RefreshToken] persist session")
	}
	log.Debug().Str("email", claims.Email).Msg("access token refreshed")
	return resp.Access, nil
}

// Logout clears the session from memory and storage, then tells the server
// to blacklist the refresh token. The server call is best effort: its
// failure is logged only. The user is sent to the login view unless already
// there. Only a storage failure is returned.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	previous := s.session
	s.session = sessions.Session{}
	s.mu.Unlock()

	clearErr := sessions.Clear(ctx, s.repo)

	if previous.RefreshToken != "" {
		req := apiclient.Request{
			Method: http.MethodPost,
			Path:   apiclient.PathLogout,
			Body:   token.RefreshRequest{Refresh: previous.RefreshToken},
		}.WithBearer(previous.AccessToken)
		if err := s.client.Do(ctx, req, nil); err != nil {
			log.Warn().Err(err).Msg("server logout failed")
		}
	}

	if s.nav.CurrentRoute() != RouteLogin {
		s.nav.Navigate(RouteLogin)
	}
	return errors.Wrap(clearErr, "[Service.Logout] clear storage")
}
