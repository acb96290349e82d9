package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kuitang/notebook/internal/urlutil"
)

// DefaultServer is where the CLI looks for the store when nothing is configured.
const DefaultServer = "http://localhost:8080"

// ClientConfig configures the notebook CLI. Values come from the YAML file,
// then NOTEBOOK_* env vars, then command-line flags (applied by the caller).
type ClientConfig struct {
	Server   string        `yaml:"server"`
	CacheDir string        `yaml:"cache_dir"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DefaultClientConfigPath returns <user config dir>/notebook/config.yaml.
func DefaultClientConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "notebook", "config.yaml"), nil
}

// LoadClientConfig reads path (a missing file is not an error) and applies env
// overrides. An empty path selects DefaultClientConfigPath. The result is not
// validated; call Validate once flags have been applied.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg, err := LoadClientConfigFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Server = getEnvOrDefault("NOTEBOOK_SERVER", cfg.Server)
	cfg.CacheDir = getEnvOrDefault("NOTEBOOK_CACHE_DIR", cfg.CacheDir)
	cfg.Timeout = parseDurationOrDefault("NOTEBOOK_TIMEOUT", cfg.Timeout)
	return cfg, nil
}

// LoadClientConfigFile reads only the file layer over the defaults, for
// commands that edit the file and must not persist env overrides.
func LoadClientConfigFile(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{
		Server:  DefaultServer,
		Timeout: 10 * time.Second,
	}

	if path == "" {
		var err error
		if path, err = DefaultClientConfigPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks the merged client settings.
func (c *ClientConfig) Validate() error {
	var errs []string
	if c.Server == "" {
		errs = append(errs, "server is required (config file, NOTEBOOK_SERVER or --server)")
	} else if server, err := urlutil.NormalizeBaseURL(c.Server); err != nil {
		errs = append(errs, fmt.Sprintf("server: %v", err))
	} else {
		c.Server = server
	}
	if c.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// SaveClientConfig writes cfg to path as YAML, creating parent directories.
func SaveClientConfig(path string, cfg *ClientConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode client config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
