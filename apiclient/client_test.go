package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Urientropy/centavo/apiclient"
	clienterrors "github.com/Urientropy/centavo/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeSession hands out "old" until refreshed, then "new".
type fakeSession struct {
	mu         sync.Mutex
	access     string
	refreshed  atomic.Int32
	refreshErr error
	delay      time.Duration
}

func (s *fakeSession) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.access == "" {
		return &oauth2.Token{}, nil
	}
	return &oauth2.Token{AccessToken: s.access, TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}, nil
}

func (s *fakeSession) RefreshToken(context.Context) (string, error) {
	s.refreshed.Add(1)
	time.Sleep(s.delay)
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = "new"
	return s.access, nil
}

type testFixture struct {
	server   *httptest.Server
	client   *apiclient.Client
	session  *fakeSession
	registry *prometheus.Registry
	hits     atomic.Int32
}

// setupTestFixture serves handler and accepts only the "new" bearer on /secure/.
func setupTestFixture(t *testing.T, handler http.HandlerFunc) *testFixture {
	t.Helper()

	f := &testFixture{
		session:  &fakeSession{access: "old"},
		registry: prometheus.NewRegistry(),
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	client, err := apiclient.New(f.server.URL+"/api", f.session, apiclient.WithRegisterer(f.registry))
	require.NoError(t, err)
	f.client = client
	return f
}

func requireBearer(want string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+want {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "path": r.URL.Path})
	}
}

func TestNewValidation(t *testing.T) {
	_, err := apiclient.New("", nil)
	require.Error(t, err)
	_, err = apiclient.New("not a url", nil)
	require.Error(t, err)
}

func TestBearerAttachedAndDecoded(t *testing.T) {
	var gotID string
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(apiclient.HeaderRequestID)
		require.Equal(t, "/api/products/", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		requireBearer("old")(w, r)
	})

	var out struct {
		OK bool `json:"ok"`
	}
	err := f.client.Get(context.Background(), apiclient.PathProducts, url.Values{"page": {"2"}}, &out)
	require.NoError(t, err)
	require.True(t, out.OK)
	require.NotEmpty(t, gotID)
	require.Equal(t, int32(0), f.session.refreshed.Load())
}

func TestRefreshAndReplayOn401(t *testing.T) {
	var ids []string
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get(apiclient.HeaderRequestID))
		requireBearer("new")(w, r)
	})

	var out map[string]any
	err := f.client.Get(context.Background(), "/secure/", nil, &out)
	require.NoError(t, err)
	require.Equal(t, true, out["ok"])
	require.Equal(t, int32(1), f.session.refreshed.Load())
	require.Equal(t, int32(2), f.hits.Load())
	require.Len(t, ids, 2)
	require.Equal(t, ids[0], ids[1])

	m := f.client.Metrics()
	require.Equal(t, 1.0, testutil.ToFloat64(m.Replays))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "401")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "200")))
}

func TestAtMostOneRetry(t *testing.T) {
	f := setupTestFixture(t, requireBearer("never"))

	err := f.client.Get(context.Background(), "/secure/", nil, nil)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Given token not valid for any token type", apiErr.Detail)
	require.Equal(t, int32(1), f.session.refreshed.Load())
	require.Equal(t, int32(2), f.hits.Load())
}

func TestAuthEndpointsNeverRefresh(t *testing.T) {
	for _, path := range apiclient.AuthPaths {
		t.Run(path, func(t *testing.T) {
			f := setupTestFixture(t, requireBearer("never"))

			err := f.client.Post(context.Background(), path, map[string]string{"refresh": "x"}, nil)
			var apiErr *apiclient.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
			require.Equal(t, int32(0), f.session.refreshed.Load())
			require.Equal(t, int32(1), f.hits.Load())
		})
	}
}

func TestRefreshFailurePropagates(t *testing.T) {
	f := setupTestFixture(t, requireBearer("new"))
	refreshErr := errors.New("refresh rejected")
	f.session.refreshErr = refreshErr

	err := f.client.Get(context.Background(), "/secure/", nil, nil)
	require.ErrorIs(t, err, refreshErr)
	require.Equal(t, int32(1), f.hits.Load())
	require.Equal(t, 1.0, testutil.ToFloat64(f.client.Metrics().Refreshes.WithLabelValues("failure")))
}

func TestNon401ErrorsAreNotRetried(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"name":["This field is required."],"non_field_errors":["Bad combo."]}`))
	})

	err := f.client.Post(context.Background(), apiclient.PathProducts, map[string]any{}, nil)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "This field is required.", apiErr.FieldError("name"))
	require.Equal(t, "Bad combo.", apiErr.FieldError("non_field_errors"))
	require.True(t, apiErr.HasBody())
	require.Contains(t, apiErr.Error(), "name: This field is required.")
	require.Equal(t, int32(0), f.session.refreshed.Load())
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	f := setupTestFixture(t, requireBearer("new"))
	f.session.delay = 50 * time.Millisecond

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.client.Get(context.Background(), "/secure/", nil, nil)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), f.session.refreshed.Load())
}

func TestReplayReusesTokenRefreshedByAnotherCaller(t *testing.T) {
	f := setupTestFixture(t, requireBearer("new"))

	// First call refreshes.
	require.NoError(t, f.client.Get(context.Background(), "/secure/", nil, nil))
	require.Equal(t, int32(1), f.session.refreshed.Load())

	// A request still carrying the old bearer is replayed with the current one.
	err := f.client.Do(context.Background(), apiclient.Request{Method: http.MethodGet, Path: "/secure/"}.WithBearer("old"), nil)
	require.NoError(t, err)
	require.Equal(t, int32(1), f.session.refreshed.Load())
}

func TestNetworkError(t *testing.T) {
	f := setupTestFixture(t, requireBearer("old"))
	f.server.Close()

	err := f.client.Get(context.Background(), "/secure/", nil, nil)
	require.ErrorIs(t, err, clienterrors.ErrNetwork)

	var apiErr *apiclient.APIError
	require.False(t, errors.As(err, &apiErr))
	require.Equal(t, int32(0), f.session.refreshed.Load())
}

func TestInvalidPayload(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})

	var out map[string]any
	err := f.client.Get(context.Background(), "/secure/", nil, &out)
	require.ErrorIs(t, err, clienterrors.ErrInvalidPayload)
}

func TestEmptyBodyIsAccepted(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, f.client.Delete(context.Background(), apiclient.DetailPath(apiclient.PathIncomes, 4)))
}

func TestCSRFHeader(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]string{}
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.Method] = r.Header.Get(apiclient.HeaderCSRF)
		mu.Unlock()
		if r.Method == http.MethodGet && r.URL.Path == "/api/csrf/" {
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok123", Path: "/"})
		}
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	// No cookie yet.
	require.NoError(t, f.client.Post(ctx, "/x/", map[string]int{"a": 1}, nil))
	require.Equal(t, "", seen[http.MethodPost])

	require.NoError(t, f.client.Get(ctx, "/csrf/", nil, nil))

	require.NoError(t, f.client.Get(ctx, "/x/", nil, nil))
	require.NoError(t, f.client.Post(ctx, "/x/", map[string]int{"a": 1}, nil))
	require.NoError(t, f.client.Put(ctx, "/x/", map[string]int{"a": 1}, nil))
	require.NoError(t, f.client.Patch(ctx, "/x/", map[string]int{"a": 1}, nil))
	require.NoError(t, f.client.Delete(ctx, "/x/"))

	require.Equal(t, "", seen[http.MethodGet])
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		require.Equal(t, "tok123", seen[m], m)
	}
}

func TestCSRFDisabled(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(apiclient.HeaderCSRF)
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok", Path: "/"})
	}))
	defer server.Close()

	client, err := apiclient.New(server.URL, nil, apiclient.WithCSRF(false, ""))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, client.Get(ctx, "/", nil, nil))
	require.NoError(t, client.Post(ctx, "/", nil, nil))
	require.Empty(t, got)
}

func TestAnonymousClientNeverRefreshes(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := apiclient.New(server.URL, nil)
	require.NoError(t, err)

	err = client.Get(context.Background(), "/products/", nil, nil)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.False(t, apiErr.HasBody())
	require.Equal(t, int32(1), hits.Load())
}

func TestTraceAndMiddleware(t *testing.T) {
	f := setupTestFixture(t, requireBearer("old"))

	var traced []string
	var headers []string
	client, err := apiclient.New(f.server.URL, f.session,
		apiclient.WithTrace(func(method, path string, status int, _ time.Duration) {
			traced = append(traced, method+" "+path+" "+http.StatusText(status))
		}),
		apiclient.WithMiddleware(func(next http.RoundTripper) http.RoundTripper {
			return apiclient.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				headers = append(headers, r.Header.Get("Authorization"))
				return next.RoundTrip(r)
			})
		}),
	)
	require.NoError(t, err)

	require.NoError(t, client.Get(context.Background(), "/x/", nil, nil))
	require.Equal(t, []string{"GET /x/ OK"}, traced)
	require.Equal(t, []string{"Bearer old"}, headers)
}

func TestMetricsSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := apiclient.New("http://localhost", nil, apiclient.WithRegisterer(reg))
	require.NoError(t, err)
	b, err := apiclient.New("http://localhost", nil, apiclient.WithRegisterer(reg))
	require.NoError(t, err)
	require.Same(t, a.Metrics().Requests, b.Metrics().Requests)
}

func TestWithHTTPClientLeavesCallerClientUntouched(t *testing.T) {
	f := setupTestFixture(t, requireBearer("old"))
	hc := &http.Client{}

	first, err := apiclient.New(f.server.URL, f.session, apiclient.WithHTTPClient(hc), apiclient.WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	second, err := apiclient.New(f.server.URL, f.session, apiclient.WithHTTPClient(hc), apiclient.WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	require.Nil(t, hc.Jar)
	require.Nil(t, hc.Transport)

	require.NoError(t, second.Get(context.Background(), "/x/", nil, nil))
	require.Equal(t, 0, testutil.CollectAndCount(first.Metrics().Requests))
	require.Equal(t, 1, testutil.CollectAndCount(second.Metrics().Requests))
}

func TestTimeoutAppliesAfterHTTPClient(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	})

	client, err := apiclient.New(f.server.URL, nil,
		apiclient.WithTimeout(20*time.Millisecond),
		apiclient.WithHTTPClient(&http.Client{}),
	)
	require.NoError(t, err)

	err = client.Get(context.Background(), "/slow/", nil, nil)
	require.ErrorIs(t, err, clienterrors.ErrNetwork)
}

func TestAPIErrorCategories(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: clienterrors.ErrUnauthorized},
		{name: "server fault", status: http.StatusBadGateway, want: clienterrors.ErrUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			err := f.client.Post(context.Background(), apiclient.PathLogin, map[string]any{}, nil)
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("client fault", func(t *testing.T) {
		f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		err := f.client.Post(context.Background(), apiclient.PathLogin, map[string]any{}, nil)
		require.NotErrorIs(t, err, clienterrors.ErrUnauthorized)
		require.NotErrorIs(t, err, clienterrors.ErrUnexpected)
	})
}

func TestIsAuthEndpoint(t *testing.T) {
	c, err := apiclient.New("http://localhost/api", nil)
	require.NoError(t, err)

	require.True(t, c.IsAuthEndpoint("/auth/login/"))
	require.True(t, c.IsAuthEndpoint("/auth/login/refresh/"))
	require.True(t, c.IsAuthEndpoint("/auth/logout"))
	require.True(t, c.IsAuthEndpoint("/auth/register/?x=1"))
	require.False(t, c.IsAuthEndpoint("/products/"))
	require.False(t, c.IsAuthEndpoint("/auth/users/"))
}

func TestPaths(t *testing.T) {
	require.Equal(t, "/products/3/", apiclient.DetailPath(apiclient.PathProducts, 3))
	require.Equal(t, "/products/3/", apiclient.DetailPath("/products", 3))
	require.Equal(t, "/products/3/stock_evolution/", apiclient.ActionPath(apiclient.PathProducts, 3, "stock_evolution"))
	require.True(t, strings.HasSuffix(apiclient.PathRefresh, "/"))
}

func TestRequestDescriptor(t *testing.T) {
	r := apiclient.Request{Method: http.MethodGet, Path: "/x/"}
	require.Equal(t, 0, r.Attempt())
	require.False(t, r.IsMutating())
	require.True(t, apiclient.Request{Method: http.MethodDelete}.IsMutating())

	withBearer := r.WithBearer("abc")
	require.Equal(t, 0, withBearer.Attempt())
	require.Empty(t, r.RequestID())
}
