package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// SecretKeyEnv overrides secret_key when set.
const SecretKeyEnv = "CHATSTORE_SECRET_KEY"

// Config represents the global ~/.chatstore/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`
	APIBaseURL     string `toml:"api_base_url"`
	PushURL        string `toml:"push_url"`
	// SecretKey is the process-wide key sealing persisted snapshots.
	SecretKey string `toml:"secret_key"`
	AuthToken string `toml:"auth_token"`
	UserID    string `toml:"user_id"`
	// ClearOnExit deletes the persisted snapshot when the session stops.
	ClearOnExit bool `toml:"clear_on_exit"`
}

// Default returns the config used when no file exists.
func Default() *Config {
	return &Config{
		APIBaseURL: "http://127.0.0.1:5001/api",
		PushURL:    "http://127.0.0.1:5001/ws",
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadOrDefault is Load that treats a missing file as the default config.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return cfg, err
}

func (c *Config) applyEnv() {
	if v := os.Getenv(SecretKeyEnv); v != "" {
		c.SecretKey = v
	}
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
