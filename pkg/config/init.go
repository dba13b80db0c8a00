package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// configFileHeader is prepended to generated configuration files.
const configFileHeader = `# Talko Configuration File
#
# Generated by "talko init". Edit values below or override any of them
# with TALKO_* environment variables, e.g. TALKO_LOGGING_LEVEL=DEBUG.
#
`

// InitConfig creates a default configuration file at the default location.
//
// Returns the path of the created file. Fails if the file already exists
// unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a default configuration file at the given path.
//
// Fails if the file already exists unless force is set. Parent directories
// are created as needed.
func InitConfigToPath(path string, force bool) error {
	// Refuse to overwrite an existing config unless forced
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
	}

	// Create parent directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := GetDefaultConfig()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	content := append([]byte(configFileHeader), data...)

	// Restricted permissions: the file may later hold database credentials
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
