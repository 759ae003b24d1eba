//go:build !windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		"./procwatch.yaml",
		filepath.Join(home, ".procwatch", "config.yaml"),
		SystemConfigPath(),
	}
}

// SystemConfigPath is where a service install writes its config when none
// was given.
func SystemConfigPath() string {
	return "/etc/procwatch/procwatch.yaml"
}

func defaultBufferDir() string {
	if os.Geteuid() == 0 {
		return "/var/lib/procwatch/buffer"
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".procwatch", "buffer")
}
