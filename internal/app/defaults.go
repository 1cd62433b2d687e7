package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - SIFT_CONFIG_PATH: config file location (default: ~/.config/sift.toml)
//   - SIFT_HOME: base directory for sift data (default: ~/.local/share/sift)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"db_dir":      filepath.Join(baseDir, "db"),
		"backup_dir":  filepath.Join(baseDir, "backups"),
		"report_dir":  filepath.Join(baseDir, "reports"),
	}, nil
}

// getConfigPath returns the config file path, checking SIFT_CONFIG_PATH env var first,
// then falling back to the default ~/.config/sift.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("SIFT_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "sift.toml"), nil
}

// getBaseDir returns the base directory for sift data, checking SIFT_HOME env var first,
// then falling back to the XDG default ~/.local/share/sift.
func getBaseDir() (string, error) {
	if path := os.Getenv("SIFT_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "sift"), nil
}
