package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeturnum/spins-halp-line/internal/config"
)

func TestInitConfig_DefaultsWithoutCredsFile(t *testing.T) {
	t.Setenv("CREDS_PATH", filepath.Join(t.TempDir(), "missing-creds.json"))

	v, err := config.InitConfig()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", v.GetString("host"))
	assert.Equal(t, 8080, v.GetInt("port"))
}

func TestGetApplicationConfig_MissingRequiredFieldFails(t *testing.T) {
	credsPath := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(credsPath, []byte(`{"twilio": {"account_sid": "AC123"}}`), 0o600))
	t.Setenv("CREDS_PATH", credsPath)

	v, err := config.InitConfig()
	require.NoError(t, err)

	// debug_auth_secret and twilio.auth_token are both required and
	// unset, so validation must reject this config rather than silently
	// booting with an empty debug-surface secret or Twilio token.
	_, err = config.GetApplicationConfig(v)
	assert.Error(t, err)
}

func TestGetApplicationConfig_FullCredsFileSucceeds(t *testing.T) {
	credsPath := filepath.Join(t.TempDir(), "creds.json")
	body := `{
		"debug_auth_secret": "shh",
		"twilio": {"account_sid": "AC123", "auth_token": "tok"},
		"media_catalog": {"base_url": "https://media.example.com", "api_key": "key"}
	}`
	require.NoError(t, os.WriteFile(credsPath, []byte(body), 0o600))
	t.Setenv("CREDS_PATH", credsPath)

	v, err := config.InitConfig()
	require.NoError(t, err)

	cfg, err := config.GetApplicationConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "AC123", cfg.Twilio.AccountSID)
	assert.Equal(t, "shh", cfg.DebugAuthSecret)
	assert.Equal(t, "info", cfg.LogLevel)
}
