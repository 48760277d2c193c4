package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Urientropy/centavo/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("FOLDER", "/tmp/centavo")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000/api/v1", c.GetAPIBaseURL())
	require.Equal(t, "Centavo", c.GetAppName())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, 6, c.GetPageSize())
	require.Equal(t, 30*time.Second, c.GetRequestTimeout())
	require.True(t, c.GetCSRFEnabled())
	require.Equal(t, "csrftoken", c.GetCSRFCookieName())
	require.Equal(t, config.StorageFile, c.GetSessionStore())
	require.Equal(t, filepath.Join("/tmp/centavo", "session.json"), c.GetSessionFile())
}

func TestNewFromEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/api")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("PAGE_SIZE", "10")
	t.Setenv("CSRF_ENABLED", "false")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_FILE", "/var/lib/centavo.json")
	t.Setenv("ENV", "prod")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/api", c.GetAPIBaseURL())
	require.Equal(t, 5*time.Second, c.GetRequestTimeout())
	require.Equal(t, 10, c.GetPageSize())
	require.False(t, c.GetCSRFEnabled())
	require.Equal(t, config.StorageRedis, c.GetSessionStore())
	require.Equal(t, "/var/lib/centavo.json", c.GetSessionFile())
	require.Equal(t, "PROD", c.GetEnv())
}

func TestUnknownSessionStoreFallsBackToFile(t *testing.T) {
	t.Setenv("SESSION_STORE", "sqlite")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, config.StorageFile, c.GetSessionStore())
}

func TestUsageListsVariables(t *testing.T) {
	usage := config.Usage()
	require.Contains(t, usage, "API_BASE_URL")
	require.Contains(t, usage, "SESSION_STORE")
}
