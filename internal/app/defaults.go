package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - VISITNOTES_CONFIG_PATH: config file location (default: ~/.config/visitnotes.toml)
//   - VISITNOTES_HOME: base directory for visitnotes data (default: ~/.local/share/visitnotes)
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
	}, nil
}

// getConfigPath returns VISITNOTES_CONFIG_PATH when set, else ~/.config/visitnotes.toml.
// The server and the CLI client share this file.
func getConfigPath() (string, error) {
	if path := os.Getenv("VISITNOTES_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "visitnotes.toml"), nil
}

// getBaseDir returns VISITNOTES_HOME when set, else ~/.local/share/visitnotes.
// It holds the local store, the session token and the logs.
func getBaseDir() (string, error) {
	if path := os.Getenv("VISITNOTES_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "visitnotes"), nil
}
