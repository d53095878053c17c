// Package fs provides file-backed model catalogs: a static YAML catalog and
// a disk cache in front of a live catalog.
package fs

import (
	"os"
	"path/filepath"
)

// DefaultCacheDir returns the default cache directory for promptscore.
// Uses XDG_CACHE_HOME if set, otherwise falls back to ~/.cache/promptscore,
// or system temp directory if home is unavailable.
func DefaultCacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "promptscore")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "promptscore")
	}
	return filepath.Join(home, ".cache", "promptscore")
}
