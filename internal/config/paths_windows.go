//go:build windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	local := os.Getenv("LOCALAPPDATA")
	return []string{
		"procwatch.yaml",
		filepath.Join(local, "Procwatch", "config.yaml"),
		SystemConfigPath(),
	}
}

// SystemConfigPath is where a service install writes its config when none
// was given.
func SystemConfigPath() string {
	return filepath.Join(os.Getenv("ProgramData"), "Procwatch", "procwatch.yaml")
}

func defaultBufferDir() string {
	return filepath.Join(os.Getenv("LOCALAPPDATA"), "Procwatch", "buffer")
}
