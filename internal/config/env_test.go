package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range []string{
		EnvConfig, EnvSessionSecret, EnvClientID, EnvClientSecret, EnvCallbackURL, EnvPort,
		"ENVIRONMENT", "NODE_ENV",
	} {
		t.Setenv(k, "")
	}
}

func TestReadEnvOverrides_AllSet(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, "/custom/config.toml")
	t.Setenv(EnvClientID, "cid")
	t.Setenv(EnvClientSecret, "csecret")
	t.Setenv(EnvCallbackURL, "http://localhost:3000/api/forge/callback/oauth")
	t.Setenv(EnvPort, "8080")
	t.Setenv(EnvSessionSecret, "s3cr3t")
	t.Setenv("NODE_ENV", "production")

	e, err := ReadEnvOverrides()
	require.NoError(t, err)

	assert.Equal(t, "/custom/config.toml", e.ConfigPath)
	assert.Equal(t, "cid", e.ClientID)
	assert.Equal(t, "csecret", e.ClientSecret)
	assert.Equal(t, "http://localhost:3000/api/forge/callback/oauth", e.CallbackURL)
	assert.Equal(t, "8080", e.Port)
	assert.Equal(t, "s3cr3t", e.SessionSecret)
	assert.True(t, e.Production())
}

func TestReadEnvOverrides_NoneSet(t *testing.T) {
	clearEnv(t)

	e, err := ReadEnvOverrides()
	require.NoError(t, err)
	assert.Equal(t, EnvOverrides{}, e)
	assert.False(t, e.Production())
}

func TestEnvOverrides_Production(t *testing.T) {
	assert.True(t, EnvOverrides{Environment: "Production"}.Production())
	assert.True(t, EnvOverrides{NodeEnv: "production"}.Production())
	assert.False(t, EnvOverrides{Environment: "development"}.Production())
}

func TestEnvOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Forge.ClientID = "file-id"

	EnvOverrides{
		ClientSecret:  "env-secret",
		CallbackURL:   "https://example.com/cb",
		Port:          "8443",
		SessionSecret: "abc",
		Environment:   "production",
	}.Apply(cfg)

	assert.Equal(t, "file-id", cfg.Forge.ClientID)
	assert.Equal(t, "env-secret", cfg.Forge.ClientSecret)
	assert.Equal(t, "https://example.com/cb", cfg.Forge.CallbackURL)
	assert.Equal(t, ":8443", cfg.Server.ListenAddr)
	assert.Equal(t, "abc", cfg.Session.Secret)
	assert.True(t, cfg.Session.Secure)
}

func TestEnvOverrides_ApplyEmptyKeepsConfig(t *testing.T) {
	cfg := DefaultConfig()
	EnvOverrides{}.Apply(cfg)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FORGE_CLIENT_ID=dotenv-id\nPORT=7000\n"), 0o600))

	// Already-set variables win over the file; unset ones are filled in.
	t.Setenv(EnvPort, "9000")
	require.NoError(t, os.Unsetenv(EnvClientID))

	require.NoError(t, LoadDotEnv(testLogger(t), path))

	e, err := ReadEnvOverrides()
	require.NoError(t, err)
	assert.Equal(t, "dotenv-id", e.ClientID)
	assert.Equal(t, "9000", e.Port)
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	assert.NoError(t, LoadDotEnv(testLogger(t), filepath.Join(t.TempDir(), ".env")))
}
