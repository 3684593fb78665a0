package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_PartialFileIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
week_start: friday
renewal_limit: 0
subscriptions:
  - id: school
    name: School
    url: https://example.com/school.ics
basic_auth:
  username: ""
  password: ""
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, 5, cfg.RenewalLimit)
	assert.Equal(t, defaultTravelBuffer, cfg.TravelBufferMinutes)
	assert.Equal(t, "Europe/London", cfg.Timezone)
	require.Len(t, cfg.Subscriptions, 1)
	assert.Equal(t, "school", cfg.Subscriptions[0].ID)
	assert.Nil(t, cfg.BasicAuth)
}

func TestLoad_ExplicitZeroBufferIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("travel_buffer_minutes: 0\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.TravelBufferMinutes)
	assert.Equal(t, time.Duration(0), cfg.TravelBuffer())
	assert.Equal(t, defaultListen, cfg.Listen)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{
		EnvListen:       "0.0.0.0:80",
		EnvDataPath:     "/tmp/x.db",
		EnvTimezone:     "UTC",
		EnvLogLevel:     "debug",
		EnvTravelBuffer: "45",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "0.0.0.0:80", cfg.Listen)
	assert.Equal(t, "/tmp/x.db", cfg.DataPath)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 45*time.Minute, cfg.TravelBuffer())

	env[EnvTravelBuffer] = "soon"
	cfg.ApplyEnv(func(k string) string { return env[k] })
	assert.Equal(t, 45, cfg.TravelBufferMinutes)
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvListen, "127.0.0.1:9999")

	cfg, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Listen)
}

func TestHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Monday, cfg.FirstWeekday())
	cfg.WeekStart = "sunday"
	assert.Equal(t, time.Sunday, cfg.FirstWeekday())

	cfg.Timezone = "Mars/Olympus"
	assert.Equal(t, time.UTC, cfg.Location())
}
