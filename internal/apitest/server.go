// Package apitest runs an in-process imitation of the Centavo REST API for
// tests: JWT login with refresh rotation and blacklisting, paginated
// collections with search, ordering and filters, and switches to expire
// tokens or break the refresh endpoint.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Urientropy/centavo/token/jwt"
)

const (
	// Prefix is the path every endpoint is mounted under.
	Prefix = "/api/v1"

	PageSize = 6

	CSRFCookie = "csrftoken"
)

// Server is a fake API server. It is safe for concurrent use.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	creator     *jwt.Creator
	blacklist   *jwt.Blacklist
	users       *userRepo
	liveAccess  map[string]struct{}
	collections map[string]*collection
	hits        map[string]int

	rotateRefresh bool
	failRefresh   bool
	csrfToken     string
	listDelay     func(path string, page int) time.Duration
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithRefreshRotation makes the refresh endpoint return a new refresh token
// and blacklist the old one.
func WithRefreshRotation() Option {
	return func(s *Server) {
		s.rotateRefresh = true
	}
}

// WithCSRF sets a csrftoken cookie on every response and requires the
// matching X-CSRFToken header on authenticated mutating requests.
func WithCSRF(token string) Option {
	return func(s *Server) {
		s.csrfToken = token
	}
}

// WithListDelay delays list responses, to provoke out of order arrival.
func WithListDelay(delay func(path string, page int) time.Duration) Option {
	return func(s *Server) {
		s.listDelay = delay
	}
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB, options ...Option) *Server {
	t.Helper()

	s := &Server{
		creator:     jwt.NewCreator([]byte("apitest-secret"), 5*time.Minute, 24*time.Hour),
		blacklist:   jwt.NewBlacklist(),
		users:       newUserRepo(),
		liveAccess:  make(map[string]struct{}),
		collections: make(map[string]*collection),
		hits:        make(map[string]int),
	}
	for _, opt := range options {
		opt(s)
	}

	mux := http.NewServeMux()
	s.routes(mux)
	s.Server = httptest.NewServer(s.countHits(s.csrfCookie(mux)))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root the client should be pointed at.
func (s *Server) BaseURL() string {
	return s.URL + Prefix
}

// AddUser registers an account and returns it.
func (s *Server) AddUser(email, password, firstName string) *User {
	u, err := s.users.add(User{Email: email, FirstName: firstName, TenantName: "Test"}, password)
	if err != nil {
		panic(fmt.Sprintf("apitest.AddUser: %v", err))
	}
	return u
}

// IssueTokens returns an access/refresh pair for an existing user, as a
// login would.
func (s *Server) IssueTokens(u *User) (access, refresh string) {
	pair, err := s.issue(u)
	if err != nil {
		panic(fmt.Sprintf("apitest.IssueTokens: %v", err))
	}
	return pair.Access, *pair.Refresh
}

// ExpireAccessTokens invalidates every access token issued so far; the next
// authenticated call answers 401 until the client refreshes.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveAccess = make(map[string]struct{})
}

// FailRefresh makes the refresh endpoint reject every token.
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRefresh = fail
}

// Hits returns how many requests reached method and path (path relative to
// Prefix, without query).
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+Prefix+path]
}

// ResetHits zeroes the request counters.
func (s *Server) ResetHits() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = make(map[string]int)
}

// IsBlacklisted reports whether a refresh token was logged out or rotated.
func (s *Server) IsBlacklisted(refresh string) bool {
	claims, err := s.creator.Verify(refresh, jwt.TokenTypeRefresh)
	if err != nil {
		return false
	}
	jti, _ := claims["jti"].(string)
	return s.blacklist.IsRevoked(jti)
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) csrfCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.csrfToken != "" {
			http.SetCookie(w, &http.Cookie{Name: CSRFCookie, Value: s.csrfToken, Path: "/"})
		}
		next.ServeHTTP(w, r)
	})
}

// authenticated wraps a handler that needs a live access token and, for
// mutating verbs, the anti-forgery header once a cookie was issued.
func (s *Server) authenticated(next func(w http.ResponseWriter, r *http.Request, u *User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := s.userFromBearer(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		if s.csrfToken != "" && isMutating(r.Method) {
			if cookie, err := r.Cookie(CSRFCookie); err == nil && r.Header.Get("X-CSRFToken") != cookie.Value {
				writeJSON(w, http.StatusForbidden, map[string]any{"detail": "CSRF Failed: CSRF token missing."})
				return
			}
		}
		next(w, r, u)
	}
}

func (s *Server) userFromBearer(r *http.Request) (*User, bool) {
	raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || raw == "" {
		return nil, false
	}

	s.mu.Lock()
	_, live := s.liveAccess[raw]
	s.mu.Unlock()
	if !live {
		return nil, false
	}

	claims, err := s.creator.Verify(raw, jwt.TokenTypeAccess)
	if err != nil {
		return nil, false
	}
	id, _ := claims["user_id"].(float64)
	return s.users.byID(int(id))
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func readJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func fieldErrors(fields ...string) map[string][]string {
	out := make(map[string][]string, len(fields))
	for _, f := range fields {
		out[f] = []string{"This field is required."}
	}
	return out
}
