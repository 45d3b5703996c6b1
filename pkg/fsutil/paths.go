package fsutil

import (
	"os"
	"path/filepath"
)

const (
	// CacheDirName is the dot-directory under the user's home that holds the
	// scidd file cache and the response-cache database.
	CacheDirName = ".scidd_cache"

	// AppName is the name of the application used in config paths.
	AppName = "scidd"
)

// DefaultCacheDir returns the default scidd cache directory, $HOME/.scidd_cache.
func DefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, CacheDirName), nil
}

// GetConfigDir returns the directory holding the scidd configuration file.
// XDG_CONFIG_HOME is honored when set; the fallback is ~/.config/scidd.
func GetConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}
