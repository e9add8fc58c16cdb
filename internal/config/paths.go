package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".conduit"

// DataDir returns the base data directory for Conduit.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "config.toml"), nil
}

// DBPath returns the path to the local bbolt database holding credentials
// and the cached session list.
func DBPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "conduit.db"), nil
}

// StreamLogPath returns the path of the frame-level stream debug log.
func StreamLogPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "stream.log"), nil
}

// UILogPath returns the path of the TUI log file. The TUI cannot log to
// stderr while it owns the terminal.
func UILogPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "ui.log"), nil
}
