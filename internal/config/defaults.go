package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed sample_config.ini
var sampleConfig string

const (
	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// DefaultConfigPath returns the absolute path of the dotfile configuration
// in the user home directory, the conventional place for a new install.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/" + configFileNames[1])
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
