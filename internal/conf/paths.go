package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/logger"
)

const osWindows = "windows"

// GetLogger returns the config package logger.
// It is fetched from the global logger on each call so it follows SetGlobal.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}

// GetDefaultConfigPaths returns the directories searched for config.yaml.
// When one of them already holds a config.yaml, only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			filepath.Join(homeDir, "AppData", "Roaming", "drivesync"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "drivesync"),
			"/etc/drivesync",
		}
	}

	// The working directory wins so containers can mount a config next to the binary
	if wd, err := os.Getwd(); err == nil {
		configPaths = append([]string{wd}, configPaths...)
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	// Default config is created in the user directory, never in the working directory
	return configPaths[1:], nil
}
