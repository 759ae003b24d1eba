package autostart

import (
	"strings"
	"testing"
)

func TestRenderUnit(t *testing.T) {
	unit := RenderUnit("/usr/local/bin/procwatch", []string{"-config", "/etc/procwatch/procwatch.yaml", "serve"})

	want := "ExecStart=/usr/local/bin/procwatch -config /etc/procwatch/procwatch.yaml serve\n"
	if !strings.Contains(unit, want) {
		t.Errorf("unit missing %q:\n%s", want, unit)
	}
	for _, line := range []string{"SyslogIdentifier=procwatch", "ReadWritePaths=/var/lib/procwatch", "WantedBy=multi-user.target"} {
		if !strings.Contains(unit, line) {
			t.Errorf("unit missing %q", line)
		}
	}
	if strings.Contains(unit, "{") {
		t.Errorf("unit has unreplaced placeholder:\n%s", unit)
	}
}

func TestQuoteArg(t *testing.T) {
	tests := map[string]string{
		"serve":                   "serve",
		"/opt/my tools/procwatch": `"/opt/my tools/procwatch"`,
		`say "hi"`:                `"say \"hi\""`,
		"":                        `""`,
	}
	for in, want := range tests {
		if got := quoteArg(in); got != want {
			t.Errorf("quoteArg(%q) = %s, want %s", in, got, want)
		}
	}
}
