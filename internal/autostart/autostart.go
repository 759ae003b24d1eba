// Package autostart installs procwatch as a system service so the report
// server starts at boot.
package autostart

import (
	"strings"
)

// ServiceName is the name the service is registered under.
const ServiceName = "procwatch"

// DataDir is the writable state directory granted to the service.
const DataDir = "/var/lib/procwatch"

// Manager provides platform-specific autostart installation.
type Manager interface {
	IsInstalled() (bool, error)
	Install(execPath string, args []string) error
	Uninstall() error
	ServiceName() string
}

// unitTemplate is the systemd unit file written during installation.
const unitTemplate = `[Unit]
Description=procwatch process census
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={exec}
Restart=always
RestartSec=10
StandardOutput=journal
StandardError=journal
SyslogIdentifier={name}
Environment=PROCWATCH_BUFFER_DIR={data}/buffer

# Security hardening
NoNewPrivileges=true
ProtectSystem=strict
ProtectHome=true
ReadWritePaths={data}
PrivateTmp=true

[Install]
WantedBy=multi-user.target
`

// RenderUnit returns the systemd unit running execPath with args.
func RenderUnit(execPath string, args []string) string {
	cmd := make([]string, 0, len(args)+1)
	for _, a := range append([]string{execPath}, args...) {
		cmd = append(cmd, quoteArg(a))
	}
	return strings.NewReplacer(
		"{exec}", strings.Join(cmd, " "),
		"{name}", ServiceName,
		"{data}", DataDir,
	).Replace(unitTemplate)
}

// quoteArg quotes an ExecStart argument when it contains whitespace or quotes.
func quoteArg(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"'\\") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
