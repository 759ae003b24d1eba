package census

import (
	"testing"

	"github.com/Guliveer/procwatch/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		raw       models.RawState
		scheduled bool
		want      models.State
	}{
		{models.RawRunning, true, models.StateRunning},
		{models.RawRunning, false, models.StateRunning},
		{models.RawSleeping, false, models.StateInterruptibleSleep},
		{models.RawDiskSleep, false, models.StateUninterruptibleSleep},
		{models.RawStopped, false, models.StateStopped},
		{models.RawTracingStop, false, models.StateTraced},
		{models.RawZombie, false, models.StateZombie},
		{models.RawIdle, false, models.StateOther},
		{models.RawDead, false, models.StateOther},
		{models.RawParked, false, models.StateOther},
		{"", false, models.StateOther},
		// The scheduled predicate wins over any raw code.
		{models.RawSleeping, true, models.StateRunning},
		{models.RawZombie, true, models.StateRunning},
	}

	for _, tt := range tests {
		name := string(tt.raw) + "_" + tt.want.String()
		t.Run(name, func(t *testing.T) {
			if got := Classify(tt.raw, tt.scheduled); got != tt.want {
				t.Errorf("Classify(%q, %v) = %s, want %s", tt.raw, tt.scheduled, got, tt.want)
			}
		})
	}
}

func TestPopulationBucket_UnknownIsSleeping(t *testing.T) {
	for _, raw := range []models.RawState{models.RawIdle, models.RawDead, models.RawWakeKill, "", "?"} {
		if got := PopulationBucket(raw, false); got != PopSleeping {
			t.Errorf("PopulationBucket(%q) = %d, want sleeping", raw, got)
		}
	}
	if got := PopulationBucket(models.RawTracingStop, false); got != PopStopped {
		t.Errorf("traced task bucket = %d, want stopped", got)
	}
}

func TestActivityBucket_UnknownIsOther(t *testing.T) {
	for _, raw := range []models.RawState{models.RawStopped, models.RawZombie, models.RawIdle, ""} {
		if got := ActivityBucket(raw, false); got != ActOther {
			t.Errorf("ActivityBucket(%q) = %d, want other", raw, got)
		}
	}
}

func TestCPUScore(t *testing.T) {
	tests := []struct {
		state models.State
		want  int
	}{
		{models.StateRunning, 3},
		{models.StateInterruptibleSleep, 1},
		{models.StateUninterruptibleSleep, 1},
		{models.StateStopped, 0},
		{models.StateTraced, 0},
		{models.StateZombie, 0},
		{models.StateOther, 0},
	}
	for _, tt := range tests {
		if got := CPUScore(tt.state); got != tt.want {
			t.Errorf("CPUScore(%s) = %d, want %d", tt.state, got, tt.want)
		}
	}
}

func TestMemoryPercent(t *testing.T) {
	tests := []struct {
		rss, total uint64
		want       uint64
	}{
		{1000, 100000, 1},
		{999, 100000, 0},
		{5000, 0, 0},
		{0, 0, 0},
		// Shared pages counted per process can exceed the total; not clamped.
		{150000, 100000, 150},
	}
	for _, tt := range tests {
		if got := MemoryPercent(tt.rss, tt.total); got != tt.want {
			t.Errorf("MemoryPercent(%d, %d) = %d, want %d", tt.rss, tt.total, got, tt.want)
		}
	}
}

func TestMemoryMetrics(t *testing.T) {
	s := models.ProcessSnapshot{Comm: "nginx", ResidentPages: 3, VirtualPages: 10}
	vsz, rss, label := MemoryMetrics(s, 4096)
	if vsz != 40 || rss != 12 || label != "nginx" {
		t.Errorf("MemoryMetrics = %d, %d, %q; want 40, 12, nginx", vsz, rss, label)
	}

	s.Cmdline = "nginx -g daemon off;"
	if _, _, label := MemoryMetrics(s, 4096); label != s.Cmdline {
		t.Errorf("label = %q, want full cmdline", label)
	}
}

func TestIsContainer(t *testing.T) {
	tests := []struct {
		name, parent string
		want         bool
	}{
		{"dockerd", "systemd", true},
		{"myapp", "containerd-shim", true},
		{"myapp", "bash", false},
		{"runc", "", true},
		{"pause", "containerd-shim-runc-v2", true},
		{"conmon", "podman", false},
		{"cri-o", "systemd", true},
		// Known limitations of the name heuristic.
		{"my-container-app", "bash", true},
		{"Docker", "bash", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name+"_"+tt.parent, func(t *testing.T) {
			if got := IsContainer(tt.name, tt.parent); got != tt.want {
				t.Errorf("IsContainer(%q, %q) = %v, want %v", tt.name, tt.parent, got, tt.want)
			}
		})
	}
}
