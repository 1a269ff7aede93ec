// Package config resolves the on-disk locations used by reflib.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// GetConfigDir resolves the directory holding user-level configuration such
// as the file preferences. REFLIB_CONFIG_DIR wins over the XDG config home.
func GetConfigDir() string {
	if explicit := os.Getenv("REFLIB_CONFIG_DIR"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	configHome := xdg.ConfigHome
	if configHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "reflib")
			}
		}
		configHome = filepath.Join(home, ".config")
	}

	return filepath.Join(configHome, "reflib")
}

// GetDataDir resolves the directory for mutable application data such as the
// shared-database store. REFLIB_DATA_DIR wins over the XDG data home.
func GetDataDir() string {
	if explicit := os.Getenv("REFLIB_DATA_DIR"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "reflib")
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, "reflib")
}

// GetPreferencesPath returns the absolute path of the preferences INI file.
func GetPreferencesPath() string {
	return filepath.Join(GetConfigDir(), "preferences.ini")
}

// GetSharedStorePath returns the default path of the shared SQLite store.
func GetSharedStorePath() string {
	return filepath.Join(GetDataDir(), "shared.db")
}
