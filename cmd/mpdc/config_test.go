package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := loadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{defaultAddress}, config.Addresses)
	assert.Equal(t, 10*time.Second, config.Timeout)
	assert.Equal(t, 4, config.MaxSize)
	assert.Equal(t, "warn", config.LogLevel)
	assert.Empty(t, config.MetricsAddress)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("MPD_SERVER_ADDRESSES", "kitchen:6600,garden:6600")
	t.Setenv("MPD_CLIENT_TIMEOUT", "2s")
	t.Setenv("MPD_LOG_LEVEL", "debug")

	config, err := loadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"kitchen:6600", "garden:6600"}, config.Addresses)
	assert.Equal(t, 2*time.Second, config.Timeout)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("MPD_CLIENT_MAX_SIZE", "8")

	config, err := loadConfig([]string{"-s", "a:6600", "-s", "b:6600", "--max-size", "2", "--metrics-address", ":9090"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a:6600", "b:6600"}, config.Addresses)
	assert.Equal(t, 2, config.MaxSize)
	assert.Equal(t, ":9090", config.MetricsAddress)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpdc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addresses: ["livingroom:6600"]
client:
  timeout: 3s
  max_size: 1
`), 0o600))

	config, err := loadConfig([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, []string{"livingroom:6600"}, config.Addresses)
	assert.Equal(t, 3*time.Second, config.Timeout)
	assert.Equal(t, 1, config.MaxSize)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := loadConfig([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.ErrorContains(t, err, "failed to read config file")

	_, err = loadConfig([]string{"--max-size", "-1"})
	require.ErrorContains(t, err, "invalid client.max_size")

	_, err = loadConfig([]string{"--bogus"})
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("DEBUG")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = newLogger("loud")
	require.ErrorContains(t, err, "invalid log level")
}
