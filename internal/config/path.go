// Package config resolves chatledger's on-disk locations and storage
// settings.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading ~ and any $VAR references in a path taken
// from the config file or a flag, so "~/chats/exports" and
// "$HOME/chats/exports" both work. If the home directory cannot be
// determined the path is returned as written.
func ExpandPath(path string) string {
	switch {
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	case strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}
