package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Keys understood in the process environment and in ~/.aqk/.env.
const (
	EnvBaseURL  = "AQK_BASE_URL"
	EnvToken    = "AQK_TOKEN"
	EnvLogLevel = "AQK_LOG_LEVEL"
	EnvTimeout  = "AQK_TIMEOUT"
)

// DotEnvPath returns the absolute path to the console's dotenv file (~/.aqk/.env).
func DotEnvPath() (string, error) {
	dir, err := AqkDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".env"), nil
}

// LoadDotEnv reads ~/.aqk/.env and returns key/value pairs.
//
// Parsing rules:
// - Lines starting with '#' are ignored.
// - Empty lines are ignored.
// - Lines must be of form KEY=VALUE.
// - Whitespace around KEY is trimmed.
// - One pair of matching surrounding quotes is stripped from VALUE.
func LoadDotEnv() (map[string]string, error) {
	p, err := DotEnvPath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("cannot open dotenv file %s: %w", p, err)
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.Index(line, "=")
		if i <= 0 {
			continue
		}
		k := strings.TrimSpace(line[:i])
		if k == "" {
			continue
		}
		out[k] = unquote(line[i+1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read dotenv file %s: %w", p, err)
	}
	return out, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// GetConfigValue returns the effective value for key, using process environment variables
// first and falling back to ~/.aqk/.env.
func GetConfigValue(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	dotenv, err := LoadDotEnv()
	if err != nil {
		return "", err
	}
	return dotenv[key], nil
}

// EnsureDotEnvTemplate creates ~/.aqk/.env if it does not already exist.
//
// The template lists the supported keys with empty values; the bearer token
// belongs here rather than in aqk.yaml.
func EnsureDotEnvTemplate() (bool, error) {
	p, err := DotEnvPath()
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(p); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("cannot stat dotenv file %s: %w", p, err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return false, fmt.Errorf("cannot create %s: %w", filepath.Dir(p), err)
	}

	body := "" +
		EnvBaseURL + "=\n" +
		EnvToken + "=\n" +
		EnvLogLevel + "=\n"

	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		return false, fmt.Errorf("cannot write dotenv template %s: %w", p, err)
	}
	return true, nil
}
