package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "user:pass@tcp(localhost:3306)/machaonweb")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 443, cfg.WebServerPort)
	assert.Equal(t, 30*time.Second, cfg.RequestMonitoringInterval)
	assert.Equal(t, 30*time.Second, cfg.JobMonitoringInterval)
	assert.Equal(t, 60*time.Second, cfg.NodeSyncInterval)
	assert.Empty(t, cfg.CORSURLs)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "user:pass@tcp(localhost:3306)/machaonweb")
	t.Setenv("WEB_SERVER_PORT", "8443")
	t.Setenv("NODE_SYNC_INTERVAL", "120")
	t.Setenv("CORS_URL1", "https://machaonweb.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8443, cfg.WebServerPort)
	assert.Equal(t, 2*time.Minute, cfg.NodeSyncInterval)
	assert.Equal(t, []string{"https://machaonweb.com"}, cfg.CORSURLs)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("DATABASE_URL", "user:pass@tcp(localhost:3306)/machaonweb")
	t.Setenv("WEB_SERVER_PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}
