// Package apiclient is the single outbound pipeline to the REST API. It
// attaches the bearer and anti-forgery credentials, turns error responses
// into *APIError and replays a request once after a 401 with a refreshed
// access token.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	clienterrors "github.com/Urientropy/centavo/internal/errors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	HeaderCSRF      = "X-CSRFToken"
	HeaderRequestID = "X-Request-ID"

	defaultTimeout    = 30 * time.Second
	defaultCSRFCookie = "csrftoken"
)

// Session provides the credential for outgoing requests and renews it when
// the server rejects it.
type Session interface {
	oauth2.TokenSource
	// RefreshToken obtains a new access token and returns it.
	RefreshToken(ctx context.Context) (string, error)
}

// Client sends requests to the API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    Session
	authPaths  []string
	csrf       bool
	csrfCookie string
	metrics    *Metrics
	registerer prometheus.Registerer
	timeout    time.Duration
	trace      TraceFunc
	middleware []Middleware
	refreshes  singleflight.Group
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient uses a copy of hc as the underlying http.Client. A cookie
// jar is added to the copy when hc has none; hc itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		cp := *hc
		c.httpClient = &cp
	}
}

// WithTimeout sets the per request timeout. It applies whatever the order of
// the options, including over the client given to WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithCSRF toggles the X-CSRFToken header and names the cookie it is read from.
func WithCSRF(enabled bool, cookieName string) Option {
	return func(c *Client) {
		c.csrf = enabled
		if cookieName != "" {
			c.csrfCookie = cookieName
		}
	}
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = reg
	}
}

func WithTrace(trace TraceFunc) Option {
	return func(c *Client) {
		c.trace = trace
	}
}

// WithMiddleware adds transport middleware, outermost first.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw...)
	}
}

// New creates a Client for the API rooted at baseURL. session may be nil for
// anonymous use; it can also be attached later with SetSession.
func New(baseURL string, session Session, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[apiclient.New] baseURL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, errors.Wrap(err, "[apiclient.New] invalid baseURL")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		session:    session,
		authPaths:  AuthPaths,
		csrf:       true,
		csrfCookie: defaultCSRFCookie,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.timeout > 0 {
		c.httpClient.Timeout = c.timeout
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "[apiclient.New] cookie jar")
		}
		c.httpClient.Jar = jar
	}

	reg := c.registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c.metrics = NewMetrics(reg)

	transport := c.httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	mw := append([]Middleware{metricsMiddleware(c.metrics)}, c.middleware...)
	if c.trace != nil {
		mw = append(mw, traceMiddleware(c.trace))
	}
	c.httpClient.Transport = ChainMiddleware(transport, mw...)

	return c, nil
}

// SetSession attaches the session that supplies and refreshes credentials.
func (c *Client) SetSession(s Session) {
	c.session = s
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Metrics() *Metrics {
	return c.metrics
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}

// Do sends req and decodes a successful JSON response into out (which may be
// nil). A 401 on the first attempt of a non auth endpoint refreshes the
// session and replays the request exactly once.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if req.requestID == "" {
		req.requestID = uuid.NewString()
	}

	sentBearer, err := c.send(ctx, req, out)
	if !c.shouldRefresh(req, err) {
		return err
	}

	accessToken, err := c.renewedToken(ctx, sentBearer)
	if err != nil {
		return err
	}

	c.metrics.Replays.Inc()
	log.Debug().Str("request_id", req.requestID).Str("path", req.Path).Msg("replaying request with refreshed token")
	_, err = c.send(ctx, req.replay(accessToken), out)
	return err
}

func (c *Client) shouldRefresh(req Request, err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return false
	}
	if req.attempt > 0 || c.session == nil {
		return false
	}
	return !c.IsAuthEndpoint(req.Path)
}

// IsAuthEndpoint reports whether path targets login, register, refresh or
// logout.
func (c *Client) IsAuthEndpoint(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, p := range c.authPaths {
		if path == p || strings.TrimSuffix(path, "/") == strings.TrimSuffix(p, "/") {
			return true
		}
	}
	return false
}

// renewedToken returns an access token newer than the rejected one. If a
// concurrent refresh already replaced it the current token is reused,
// otherwise one refresh is shared by every caller waiting on it.
func (c *Client) renewedToken(ctx context.Context, rejected string) (string, error) {
	if tok, ok := c.currentToken(rejected); ok {
		return tok, nil
	}

	ch := c.refreshes.DoChan("refresh", func() (any, error) {
		// A flight that just ended may already have renewed the token.
		if tok, ok := c.currentToken(rejected); ok {
			return tok, nil
		}
		return c.session.RefreshToken(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			c.metrics.Refreshes.WithLabelValues("failure").Inc()
			log.Warn().Err(res.Err).Msg("access token refresh failed")
			return "", res.Err
		}
		c.metrics.Refreshes.WithLabelValues("success").Inc()
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// currentToken returns the session's access token if it is valid and not
// the rejected one.
func (c *Client) currentToken(rejected string) (string, bool) {
	tok, err := c.session.Token()
	if err != nil || !tok.Valid() || tok.AccessToken == rejected {
		return "", false
	}
	return tok.AccessToken, true
}

// send performs one HTTP exchange and returns the bearer it used.
func (c *Client) send(ctx context.Context, req Request, out any) (string, error) {
	httpReq, bearer, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return bearer, fmt.Errorf("%w: %s %s: %w", clienterrors.ErrNetwork, req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return bearer, fmt.Errorf("%w: %s %s: read body: %w", clienterrors.ErrNetwork, req.Method, req.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return bearer, newAPIError(req.Method, req.Path, resp.StatusCode, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return bearer, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return bearer, clienterrors.Wrapf(clienterrors.ErrInvalidPayload, "%s %s: %s", req.Method, req.Path, err)
	}
	return bearer, nil
}

// newHTTPRequest is the request transform: URL, JSON body, request id,
// bearer credential and anti-forgery header.
func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, string, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", clienterrors.Wrapf(clienterrors.ErrInvalidPayload, "encode %s %s: %s", req.Method, req.Path, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, "", errors.Wrapf(err, "[Client.newHTTPRequest] %s %s", req.Method, req.Path)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(HeaderRequestID, req.requestID)

	bearer := c.bearerFor(req)
	if bearer != "" {
		(&oauth2.Token{AccessToken: bearer, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}

	if c.csrf && req.IsMutating() {
		if token := c.csrfToken(httpReq.URL); token != "" {
			httpReq.Header.Set(HeaderCSRF, token)
		}
	}
	return httpReq, bearer, nil
}

func (c *Client) bearerFor(req Request) string {
	if req.bearer != "" {
		return req.bearer
	}
	if c.session == nil {
		return ""
	}
	tok, err := c.session.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return ""
	}
	// An expired token is still sent on the first attempt; the 401 it earns
	// drives the refresh.
	return tok.AccessToken
}

func (c *Client) csrfToken(u *url.URL) string {
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == c.csrfCookie {
			return cookie.Value
		}
	}
	return ""
}
