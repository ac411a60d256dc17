package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultConfigName is the filename ResolvePath looks for in the
	// working directory and in ConfigDir() before falling back to the
	// bundled default.
	DefaultConfigName = "botticelli.yaml"

	// ConfigEnvVar names the environment variable that, if set, points
	// directly at a configuration file and is checked before the
	// cwd/home search.
	ConfigEnvVar = "BOTTICELLI_CONFIG"
)

//go:embed default.yaml
var bundledDefaultConfig []byte

// ConfigDir is the per-user directory ResolvePath checks after the
// working directory: $HOME/.botticelli.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		home = "."
	}
	return filepath.Join(home, ".botticelli")
}

// ResolvePath finds the configuration file cmd/botticellid and
// cmd/botticelli should Load, following a search chain: an explicit path
// (if the caller gave one other than DefaultConfigName), then
// $BOTTICELLI_CONFIG, then ./botticelli.yaml in the working directory,
// then $HOME/.botticelli/botticelli.yaml, and finally the bundled default
// config staged to a temp file, so a fresh checkout with no config file
// anywhere still starts in a safe, in-memory-store configuration.
func ResolvePath(explicit string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" && explicit != DefaultConfigName {
		return explicit, nil
	}
	if envPath := strings.TrimSpace(os.Getenv(ConfigEnvVar)); envPath != "" {
		return envPath, nil
	}
	if _, err := os.Stat(DefaultConfigName); err == nil {
		return DefaultConfigName, nil
	}
	homePath := filepath.Join(ConfigDir(), DefaultConfigName)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}
	return stageBundledDefault()
}

// stageBundledDefault writes the embedded default config to a temp file,
// since Load takes a path rather than raw bytes.
func stageBundledDefault() (string, error) {
	dir, err := os.MkdirTemp("", "botticelli-config-*")
	if err != nil {
		return "", fmt.Errorf("stage bundled default config: %w", err)
	}
	path := filepath.Join(dir, DefaultConfigName)
	if err := os.WriteFile(path, bundledDefaultConfig, 0o644); err != nil {
		return "", fmt.Errorf("stage bundled default config: %w", err)
	}
	return path, nil
}
