package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunWritesDefault(t *testing.T) {
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

func TestLoad_NormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `timezone: Asia/Singapore
log:
  level: verbose
resolver:
  fallback: true
basic_auth:
  username: ""
  password: ""
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Asia/Singapore", cfg.Timezone)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, 60, cfg.DefaultDurationMinutes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Resolver.Fallback)
	assert.Equal(t, defaultPrefsPath, cfg.Prefs.Path)
	assert.Empty(t, cfg.Prefs.ReloadCron)
	assert.Nil(t, cfg.BasicAuth)
}

func TestLoad_RejectsBadTimezone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: Atlantis/Capital\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Timezone = "Europe/Berlin"
	cfg.DefaultDurationMinutes = 45
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}

	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestPrefsPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/etc/msgcal", "prefs.yaml"), cfg.PrefsPath("/etc/msgcal/config.yaml"))

	cfg.Prefs.Path = "/var/lib/msgcal/prefs.yaml"
	assert.Equal(t, "/var/lib/msgcal/prefs.yaml", cfg.PrefsPath("/etc/msgcal/config.yaml"))
}
