package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Urientropy/centavo/apiclient"
	"github.com/Urientropy/centavo/app"
	"github.com/Urientropy/centavo/auth"
	"github.com/Urientropy/centavo/internal/apitest"
	"github.com/Urientropy/centavo/internal/config"
	"github.com/Urientropy/centavo/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func setupConfig(t *testing.T, srv *apitest.Server, store string) config.Config {
	t.Helper()

	t.Setenv("API_BASE_URL", srv.BaseURL())
	t.Setenv("SESSION_STORE", store)
	t.Setenv("FOLDER", t.TempDir())
	cfg, err := config.New()
	require.NoError(t, err)
	return cfg
}

func newApp(t *testing.T, cfg config.Config, options ...app.Option) *app.App {
	t.Helper()

	options = append(options, app.WithClientOptions(apiclient.WithRegisterer(prometheus.NewRegistry())))
	a, err := app.New(context.Background(), cfg, auth.NewRouter(auth.RouteLogin), options...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	return a
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := app.New(context.Background(), nil, auth.NewRouter(auth.RouteLogin))
	require.Error(t, err)
}

func TestFileSessionSurvivesRestart(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser(apitest.Email, apitest.Password, apitest.FirstName)
	cfg := setupConfig(t, srv, "file")
	ctx := context.Background()

	first := newApp(t, cfg)
	require.NoError(t, first.Auth.Login(ctx, auth.Credentials{Email: apitest.Email, Password: apitest.Password}))

	_, err := os.Stat(filepath.Join(cfg.GetDataFolder(), "session.json"))
	require.NoError(t, err)

	second := newApp(t, cfg)
	require.True(t, second.Auth.IsAuthenticated())
	require.Equal(t, apitest.FirstName, second.Auth.Session().User.FirstName)

	require.NoError(t, second.Finance.Fetch(ctx, "incomes", 1))
	require.NoError(t, second.Inventory.FetchRawMaterials(ctx, 1))
	require.NoError(t, second.Products.FetchProducts(ctx, 1))
	require.NoError(t, second.Production.FetchLogs(ctx, 1))
}

func TestServicesShareOneSession(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser(apitest.Email, apitest.Password, apitest.FirstName)
	cfg := setupConfig(t, srv, "memory")
	ctx := context.Background()

	repo := sessions.NewInMemoryRepo()
	a := newApp(t, cfg, app.WithSessionRepo(repo))
	require.NoError(t, a.Auth.Login(ctx, auth.Credentials{Email: apitest.Email, Password: apitest.Password}))
	require.Equal(t, 3, repo.Len())

	srv.ExpireAccessTokens()
	require.NoError(t, a.Inventory.FetchRawMaterials(ctx, 1))
	require.NoError(t, a.Products.FetchProducts(ctx, 1))
	require.Equal(t, 1, srv.Hits("POST", apiclient.PathRefresh))

	require.NoError(t, a.Auth.Logout(ctx))
	require.Equal(t, 0, repo.Len())
}

func TestRedisStoreUnavailable(t *testing.T) {
	srv := apitest.NewServer(t)
	cfg := setupConfig(t, srv, "redis")
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	cfg, err := config.New()
	require.NoError(t, err)

	_, err = app.New(context.Background(), cfg, auth.NewRouter(auth.RouteLogin))
	require.Error(t, err)
}
