//go:build !linux

package autostart

import (
	"fmt"
	"runtime"
)

type unsupportedManager struct{}

// New returns a Manager that reports autostart as unsupported; procwatch
// installs only as a systemd service.
func New() Manager {
	return unsupportedManager{}
}

func (unsupportedManager) ServiceName() string { return ServiceName }

func (unsupportedManager) IsInstalled() (bool, error) { return false, nil }

func (unsupportedManager) Install(execPath string, args []string) error {
	return fmt.Errorf("autostart is not supported on %s", runtime.GOOS)
}

func (unsupportedManager) Uninstall() error {
	return fmt.Errorf("autostart is not supported on %s", runtime.GOOS)
}
