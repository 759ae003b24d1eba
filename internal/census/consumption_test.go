package census

import (
	"testing"

	"github.com/Guliveer/procwatch/internal/models"
)

func pids(records []models.ProcessRecord) []int32 {
	out := make([]int32, len(records))
	for i, r := range records {
		out[i] = r.PID
	}
	return out
}

func equalPIDs(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSplitConsumption(t *testing.T) {
	records := []models.ProcessRecord{
		{PID: 10, Name: "runc", RssKb: 100, CPUPercent: CPUScoreSleeping},
		{PID: 11, Name: "containerd-shim", RssKb: 90000, CPUPercent: CPUScoreSleeping},
		{PID: 12, Name: "docker-proxy", RssKb: 40000, CPUPercent: CPUScoreIdle},
		{PID: 13, Name: "pause", RssKb: 500, CPUPercent: CPUScoreRunning},
		{PID: 14, Name: "runc", RssKb: 2000, CPUPercent: CPUScoreIdle},
		{PID: 15, Name: "docker", Cmdline: "docker run grafana/grafana", RssKb: 80000},
		{PID: 16, Name: "podman", RssKb: 30000, CPUPercent: CPUScoreSleeping},
		{PID: 17, Name: "runc", RssKb: 2000, CPUPercent: CPUScoreSleeping},
	}
	in := append([]models.ProcessRecord(nil), records...)

	low, high := SplitConsumption(records, DefaultThresholds())

	if got, want := pids(high), []int32{12, 13}; !equalPIDs(got, want) {
		t.Errorf("high = %v, want %v", got, want)
	}
	// 30000 KiB is not above the threshold; equal sizes keep input order.
	if got, want := pids(low), []int32{16, 14, 17, 10}; !equalPIDs(got, want) {
		t.Errorf("low = %v, want %v", got, want)
	}
	if !equalPIDs(pids(records), pids(in)) {
		t.Error("input records were reordered")
	}
}

func TestSplitConsumption_Empty(t *testing.T) {
	low, high := SplitConsumption(nil, DefaultThresholds())
	if low == nil || high == nil || len(low) != 0 || len(high) != 0 {
		t.Errorf("low = %v, high = %v, want empty non-nil slices", low, high)
	}
}

func TestThresholds_Excluded(t *testing.T) {
	th := Thresholds{Exclude: []string{" Grafana ", ""}}
	tests := []struct {
		r    models.ProcessRecord
		want bool
	}{
		{models.ProcessRecord{Name: "grafana-server"}, true},
		{models.ProcessRecord{Name: "runc", Cmdline: "/usr/bin/GRAFANA"}, true},
		{models.ProcessRecord{Name: "runc"}, false},
	}
	for _, tt := range tests {
		if got := th.Excluded(tt.r); got != tt.want {
			t.Errorf("Excluded(%+v) = %v, want %v", tt.r, got, tt.want)
		}
	}
}
