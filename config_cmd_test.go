package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/viewhubs/internal/config"
)

func TestRunConfigShow_NoConfig(t *testing.T) {
	resetGlobals(t)
	resolvedCfg = nil

	err := runConfigShow(&bytes.Buffer{})
	assert.EqualError(t, err, "no configuration loaded")
}

func TestRunConfigShow_TextMasksSecrets(t *testing.T) {
	resetGlobals(t)

	cfg := config.DefaultConfig()
	cfg.Forge.ClientID = "app-id"
	cfg.Forge.ClientSecret = "very-secret"
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	resolvedCfg, resolvedPath = cfg, "/etc/viewhubs/config.toml"

	var out bytes.Buffer
	require.NoError(t, runConfigShow(&out))

	text := out.String()
	assert.Contains(t, text, `/etc/viewhubs/config.toml`)
	assert.Contains(t, text, `client_id     = "app-id"`)
	assert.NotContains(t, text, "very-secret")
	assert.NotContains(t, text, "0123456789abcdef")
}

func TestRunConfigShow_JSONRedacted(t *testing.T) {
	resetGlobals(t)

	cfg := config.DefaultConfig()
	cfg.Forge.ClientID = "app-id"
	cfg.Forge.ClientSecret = "very-secret"
	resolvedCfg = cfg
	flagJSON = true

	var out bytes.Buffer
	require.NoError(t, runConfigShow(&out))

	var got config.Config
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))

	assert.Equal(t, "app-id", got.Forge.ClientID)
	assert.Equal(t, "********", got.Forge.ClientSecret)
	assert.Empty(t, got.Session.Secret)

	// The resolved config itself is untouched.
	assert.Equal(t, "very-secret", resolvedCfg.Forge.ClientSecret)
}
