package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	vars := map[string]string{
		"AUTH_USERNAME":   "admin",
		"AUTH_PASSWORD":   "$2a$10$fakehashfakehashfakehashfakehashfakehashfakeh",
		"AUTH_SECRET_KEY": "test-secret",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
	_ = os.Unsetenv("PORT")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 16, cfg.Server.WorkerConcurrency)
	assert.Equal(t, "text", cfg.Server.LogFormat)
	assert.Equal(t, "/var/lib/preflight/diagnostics", cfg.Diagnostics.OutputDir)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("AUTH_USERNAME", "")
	t.Setenv("AUTH_PASSWORD", "")
	t.Setenv("AUTH_SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load()
	require.Error(t, err)
}

func TestEnvList(t *testing.T) {
	t.Setenv("DNS_TEST_HOSTNAMES", "example.com, foo.bar ,,baz.com")
	got := envList("DNS_TEST_HOSTNAMES")
	assert.Equal(t, []string{"example.com", "foo.bar", "baz.com"}, got)
}
