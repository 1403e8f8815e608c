package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"client"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadConfig_Defaults(t *testing.T) {
	withArgs(t)

	cfg := LoadConfig()
	assert.Equal(t, "http://127.0.0.1:8000", cfg.ServerBaseURL)
	assert.Equal(t, "claimsync.db", cfg.DatabasePath)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 30*time.Second, cfg.OnlineCheckInterval)
}

func TestLoadConfig_Flags(t *testing.T) {
	withArgs(t, "-a", "http://api.example.com", "-d", "/tmp/replica.db", "-s", "60", "-i", "5")

	cfg := LoadConfig()
	assert.Equal(t, "http://api.example.com", cfg.ServerBaseURL)
	assert.Equal(t, "/tmp/replica.db", cfg.DatabasePath)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, 5*time.Second, cfg.OnlineCheckInterval)
}

func TestLoadConfig_JsonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server_base_url": "http://json.example.com",
		"sync_interval": "2m"
	}`), 0o600))
	withArgs(t, "-c", path)

	cfg := LoadConfig()
	assert.Equal(t, "http://json.example.com", cfg.ServerBaseURL)
	assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, "claimsync.db", cfg.DatabasePath)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadConfig_FlagsOverrideJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server_base_url": "http://json.example.com"}`), 0o600))
	withArgs(t, "-c", path, "-a", "http://flag.example.com")

	cfg := LoadConfig()
	assert.Equal(t, "http://flag.example.com", cfg.ServerBaseURL)
}

func TestLoadConfig_MissingJsonFilePanics(t *testing.T) {
	withArgs(t, "-c", filepath.Join(t.TempDir(), "absent.json"))
	assert.Panics(t, func() { LoadConfig() })
}
