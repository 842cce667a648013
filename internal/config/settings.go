package config

import (
	"fmt"
	"strings"
	"time"
)

// Settings are the effective values a command runs with.
type Settings struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	StateFile string
	LogLevel  string
}

// Overrides carry values given on the command line. Empty fields are unset.
type Overrides struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	LogLevel string
}

// Resolve merges command-line overrides, the process environment,
// ~/.aqk/.env, ~/.aqk/aqk.yaml and the built-in defaults, in that order.
func Resolve(o Overrides) (*Settings, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	pick := func(flag, key, file, def string) (string, error) {
		if flag != "" {
			return flag, nil
		}
		v, err := GetConfigValue(key)
		if err != nil {
			return "", err
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
		if file != "" {
			return file, nil
		}
		return def, nil
	}

	s := &Settings{}
	if s.BaseURL, err = pick(o.BaseURL, EnvBaseURL, cfg.BaseURL, DefaultBaseURL); err != nil {
		return nil, err
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	if s.Token, err = pick(o.Token, EnvToken, "", ""); err != nil {
		return nil, err
	}
	if s.LogLevel, err = pick(o.LogLevel, EnvLogLevel, cfg.LogLevel, DefaultLogLevel); err != nil {
		return nil, err
	}

	s.Timeout = o.Timeout
	if s.Timeout <= 0 {
		raw, err := pick("", EnvTimeout, cfg.Timeout, DefaultTimeout.String())
		if err != nil {
			return nil, err
		}
		if s.Timeout, err = time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", raw, err)
		}
	}

	state := cfg.StateFile
	if state == "" {
		state = DefaultConfig().StateFile
	}
	if s.StateFile, err = ExpandPath(state); err != nil {
		return nil, err
	}
	return s, nil
}
