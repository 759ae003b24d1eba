//go:build linux

package autostart

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

// linuxManager implements Manager for Linux using systemd.
type linuxManager struct {
	unitPath string
	dataDir  string
	run      func(name string, args ...string) error
}

// New returns a Manager that uses systemd for service management.
func New() Manager {
	return &linuxManager{
		unitPath: "/etc/systemd/system/" + ServiceName + ".service",
		dataDir:  DataDir,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// ServiceName returns the systemd service name.
func (l *linuxManager) ServiceName() string { return ServiceName }

// IsInstalled checks whether the systemd unit file exists.
func (l *linuxManager) IsInstalled() (bool, error) {
	_, err := os.Stat(l.unitPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking unit file: %w", err)
	}
	return true, nil
}

// Install writes the systemd unit file, reloads the daemon, enables and starts the service.
func (l *linuxManager) Install(execPath string, args []string) error {
	if err := os.MkdirAll(l.dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	if err := os.WriteFile(l.unitPath, []byte(RenderUnit(execPath, args)), 0644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}

	commands := [][]string{
		{"systemctl", "daemon-reload"},
		{"systemctl", "enable", ServiceName},
		{"systemctl", "start", ServiceName},
	}
	for _, c := range commands {
		if err := l.run(c[0], c[1:]...); err != nil {
			return fmt.Errorf("running %s: %w", strings.Join(c, " "), err)
		}
	}
	return nil
}

// Uninstall stops, disables, and removes the systemd service.
func (l *linuxManager) Uninstall() error {
	// Stop and disable fail harmlessly when the service is already inactive.
	_ = l.run("systemctl", "stop", ServiceName)
	_ = l.run("systemctl", "disable", ServiceName)

	if err := os.Remove(l.unitPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing unit file: %w", err)
	}

	_ = l.run("systemctl", "daemon-reload")
	return nil
}
