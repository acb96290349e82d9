package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearClientEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NOTEBOOK_SERVER", "")
	t.Setenv("NOTEBOOK_CACHE_DIR", "")
	t.Setenv("NOTEBOOK_TIMEOUT", "")
}

func TestLoadClientConfig_MissingFileUsesDefaults(t *testing.T) {
	clearClientEnv(t)
	cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultServer, cfg.Server)
	require.Equal(t, 10*time.Second, cfg.Timeout)
	require.Empty(t, cfg.CacheDir)
}

func TestLoadClientConfig_ReadsYAML(t *testing.T) {
	clearClientEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: https://notes.example.com\ncache_dir: /tmp/nb\ntimeout: 3s\n"), 0o600))

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	require.Equal(t, "https://notes.example.com", cfg.Server)
	require.Equal(t, "/tmp/nb", cfg.CacheDir)
	require.Equal(t, 3*time.Second, cfg.Timeout)
}

func TestLoadClientConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: https://file.example.com\ntimeout: 3s\n"), 0o600))
	t.Setenv("NOTEBOOK_SERVER", "http://127.0.0.1:9999")
	t.Setenv("NOTEBOOK_CACHE_DIR", "/var/cache/nb")
	t.Setenv("NOTEBOOK_TIMEOUT", "250ms")

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:9999", cfg.Server)
	require.Equal(t, "/var/cache/nb", cfg.CacheDir)
	require.Equal(t, 250*time.Millisecond, cfg.Timeout)
}

func TestLoadClientConfig_RejectsBadYAML(t *testing.T) {
	clearClientEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated\n"), 0o600))

	_, err := LoadClientConfig(path)
	require.Error(t, err)
}

func TestClientConfig_ValidateRejectsNonHTTPServer(t *testing.T) {
	clearClientEnv(t)
	t.Setenv("NOTEBOOK_SERVER", "ftp://example.com")

	cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err, "loading leaves validation to the caller")
	require.Equal(t, "ftp://example.com", cfg.Server)

	var verr *ValidationError
	require.ErrorAs(t, cfg.Validate(), &verr)
	require.Len(t, verr.Errors, 1)
}

func TestClientConfig_BadEnvServerCanBeOverridden(t *testing.T) {
	clearClientEnv(t)
	t.Setenv("NOTEBOOK_SERVER", "not a url")

	cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.Server = "https://notes.example.com/"
	require.NoError(t, cfg.Validate())
	require.Equal(t, "https://notes.example.com", cfg.Server)
}

func TestSaveClientConfig_RoundTrip(t *testing.T) {
	clearClientEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := &ClientConfig{Server: "https://notes.example.com", CacheDir: "/tmp/c", Timeout: 42 * time.Second}
	require.NoError(t, SaveClientConfig(path, want))

	got, err := LoadClientConfig(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
