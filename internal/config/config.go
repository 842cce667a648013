package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL is the orchestrator address used when nothing else is configured.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds a single request to the orchestrator.
	DefaultTimeout = 60 * time.Second
	// DefaultLogLevel keeps CLI output clean unless asked otherwise.
	DefaultLogLevel = "warn"
)

// Config is the in-memory representation of ~/.aqk/aqk.yaml.
type Config struct {
	BaseURL   string `yaml:"base_url,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
	StateFile string `yaml:"state_file,omitempty"`
	LogLevel  string `yaml:"log_level,omitempty"`
}

// AqkDir returns the absolute path to ~/.aqk/.
func AqkDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".aqk"), nil
}

// ConfigPath returns the absolute path to ~/.aqk/aqk.yaml.
func ConfigPath() (string, error) {
	dir, err := AqkDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "aqk.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultConfig returns the Config written on first aqk init.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   DefaultTimeout.String(),
		StateFile: filepath.Join("~", ".aqk", "state.json"),
		LogLevel:  DefaultLogLevel,
	}
}

// Load reads and parses ~/.aqk/aqk.yaml.
//
// A missing file is not an error: the console works against the defaults
// until the operator runs aqk init.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	if cfg.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Timeout); err != nil {
			return nil, fmt.Errorf("invalid timeout %q in %s: %w", cfg.Timeout, path, err)
		}
	}
	return &cfg, nil
}

// Save marshals cfg and writes it to ~/.aqk/aqk.yaml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}
