package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/apisync/pkg/constants"
	"github.com/agentstation/apisync/pkg/errors"
)

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "header", config.AuthScheme)
	assert.Equal(t, "x-api-key", config.AuthHeader)
	assert.Equal(t, constants.DefaultHTTPTimeout, config.Timeout)
	assert.Equal(t, constants.CommandTimeout, config.CommandTimeout)
	assert.Equal(t, constants.DefaultPageLimit, config.PageLimit)
	assert.Equal(t, "auto", config.LogFormat)
	assert.Equal(t, "stderr", config.LogOutput)
	assert.Empty(t, config.Endpoint)
	assert.Empty(t, config.ConfigFile)
}

func TestLoadConfigEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("APISYNC_ENDPOINT", "https://gateway.example.com")
	t.Setenv("APISYNC_API_KEY", "secret")
	t.Setenv("APISYNC_TIMEOUT", "5s")
	t.Setenv("APISYNC_RATE_LIMIT", "2.5")
	t.Setenv("APISYNC_VERBOSE", "true")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "https://gateway.example.com", config.Endpoint)
	assert.Equal(t, "secret", config.APIKey)
	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.InDelta(t, 2.5, config.RateLimit, 0.0001)
	assert.True(t, config.Verbose)
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "apisync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
endpoint: https://file.example.com
auth_scheme: bearer
page_limit: 10
`), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com", config.Endpoint)
	assert.Equal(t, "bearer", config.AuthScheme)
	assert.Equal(t, 10, config.PageLimit)
	assert.Equal(t, path, config.ConfigFile)

	// environment wins over the file
	t.Setenv("APISYNC_ENDPOINT", "https://env.example.com")
	config, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", config.Endpoint)
}

func TestLoadConfigHomeFile(t *testing.T) {
	isolate(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".apisync.yaml"), []byte("format: json\n"), 0o600))

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "json", config.Format)
}

func TestLoadConfigMissingFile(t *testing.T) {
	isolate(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	var configErr *errors.ConfigError
	require.ErrorAs(t, err, &configErr)
}

func TestLoadConfigInvalid(t *testing.T) {
	isolate(t)
	t.Setenv("APISYNC_PAGE_LIMIT", "0")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Timeout: time.Second, PageLimit: 25}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, field: "timeout"},
		{name: "negative command timeout", mutate: func(c *Config) { c.CommandTimeout = -time.Second }, field: "command_timeout"},
		{name: "negative rate", mutate: func(c *Config) { c.RateLimit = -1 }, field: "rate_limit"},
		{name: "zero page limit", mutate: func(c *Config) { c.PageLimit = 0 }, field: "page_limit"},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			var validationErr *errors.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestUpdateFromFlags(t *testing.T) {
	config := &Config{Format: "yaml", Endpoint: "https://config.example.com", LogLevel: "warn"}
	flags := &Flags{Format: "json", Endpoint: "https://flag.example.com", Verbose: true}

	changed := map[string]bool{"endpoint": true, "verbose": true}
	config.UpdateFromFlags(flags, func(name string) bool { return changed[name] })

	assert.Equal(t, "https://flag.example.com", config.Endpoint)
	assert.True(t, config.Verbose)
	assert.Equal(t, "yaml", config.Format)
	assert.Equal(t, "warn", config.LogLevel)
}
