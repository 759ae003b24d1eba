package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Guliveer/procwatch/internal/census"
	"github.com/Guliveer/procwatch/internal/collector"
	"github.com/Guliveer/procwatch/internal/models"
)

func scenarioSource() *collector.StaticSource {
	return &collector.StaticSource{
		Processes: []models.ProcessSnapshot{
			{PID: 1, Comm: "init", RawState: models.RawRunning, Scheduled: true, ResidentPages: 1000, VirtualPages: 2000},
			{PID: 2, PPID: 1, Comm: "sshd", ParentComm: "init", RawState: models.RawSleeping, ResidentPages: 500, VirtualPages: 500},
			{PID: 3, PPID: 1, Comm: "runc", ParentComm: "init", RawState: models.RawDiskSleep, ResidentPages: 200, VirtualPages: 200},
		},
		Memory: models.MemoryInfo{TotalKb: 100000, FreeKb: 25000},
		Host:   models.SystemIdentity{Kernel: "6.8.0", Architecture: "x86_64", Hostname: "node-1"},
	}
}

func newTestGenerator(src *collector.StaticSource, clock func() time.Time) *Generator {
	return NewGenerator(src, src, src,
		WithPageSize(1024),
		WithClock(clock),
		WithLocation(time.UTC))
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 9, 7, 5, 3, 0, time.UTC)
}

func TestSystem_Scenario(t *testing.T) {
	g := newTestGenerator(scenarioSource(), fixedClock)
	r := g.System(context.Background())

	if r.Timestamp != "2025-03-09 07:05:03" {
		t.Errorf("Timestamp = %q", r.Timestamp)
	}
	if r.ProcessSummary != (models.ActivityBlock{Total: 3, Running: 1, Sleeping: 2, Other: 0}) {
		t.Errorf("ProcessSummary = %+v", r.ProcessSummary)
	}
	if r.Memory != (models.MemoryBlock{TotalKb: 100000, FreeKb: 25000, UsedKb: 75000}) {
		t.Errorf("Memory = %+v", r.Memory)
	}
	if len(r.Processes) != 3 {
		t.Fatalf("Processes = %d, want 3", len(r.Processes))
	}
	p := r.Processes[0]
	if p.CPUPercent != 3 || p.MemoryPercent != 1 || p.State != "RUNNING" {
		t.Errorf("pid 1 entry = %+v", p)
	}
	if r.Processes[2].State != "UNINTERRUPTIBLE" {
		t.Errorf("pid 3 state = %q", r.Processes[2].State)
	}
}

func TestContainers_Scenario(t *testing.T) {
	g := newTestGenerator(scenarioSource(), fixedClock)
	r := g.Containers(context.Background())

	if len(r.Containers) != 1 || r.Containers[0].PID != 3 {
		t.Fatalf("Containers = %+v, want only pid 3", r.Containers)
	}
	if r.Containers[0].Cmdline != "runc" {
		t.Errorf("Cmdline = %q, want runc", r.Containers[0].Cmdline)
	}
}

func TestConsumption_Scenario(t *testing.T) {
	src := scenarioSource()
	src.Processes = append(src.Processes,
		models.ProcessSnapshot{PID: 4, PPID: 1, Comm: "containerd", ParentComm: "init", RawState: models.RawSleeping, ResidentPages: 90000, VirtualPages: 90000},
		models.ProcessSnapshot{PID: 5, PPID: 4, Comm: "nginx", ParentComm: "containerd", RawState: models.RawSleeping, ResidentPages: 40000, VirtualPages: 40000},
		models.ProcessSnapshot{PID: 6, PPID: 4, Comm: "pause", ParentComm: "containerd", RawState: models.RawRunning, Scheduled: true, ResidentPages: 100, VirtualPages: 100},
	)
	g := newTestGenerator(src, fixedClock)
	r := g.Consumption(context.Background())

	if r.Timestamp != "2025-03-09 07:05:03" {
		t.Errorf("Timestamp = %q", r.Timestamp)
	}
	if r.Thresholds.MemoryKb != 30000 {
		t.Errorf("Thresholds = %+v", r.Thresholds)
	}
	// containerd itself is excluded; nginx is over the memory limit and the
	// running pause process over the activity limit.
	if len(r.HighConsumption) != 2 || r.HighConsumption[0].PID != 5 || r.HighConsumption[1].PID != 6 {
		t.Errorf("HighConsumption = %+v, want pids 5, 6", r.HighConsumption)
	}
	if len(r.LowConsumption) != 1 || r.LowConsumption[0].PID != 3 {
		t.Errorf("LowConsumption = %+v, want pid 3", r.LowConsumption)
	}

	g = NewGenerator(src, src, src, WithPageSize(1024), WithClock(fixedClock),
		WithThresholds(census.Thresholds{MemoryKb: 1 << 30, CPUScore: census.CPUScoreRunning}))
	r = g.Consumption(context.Background())
	if len(r.HighConsumption) != 0 || len(r.LowConsumption) != 4 {
		t.Errorf("unlimited split: low = %d, high = %d, want 4, 0", len(r.LowConsumption), len(r.HighConsumption))
	}
	if r.LowConsumption[0].PID != 4 {
		t.Errorf("largest low consumer = %d, want 4", r.LowConsumption[0].PID)
	}
}

func TestRender_ConsumptionKeys(t *testing.T) {
	g := newTestGenerator(scenarioSource(), fixedClock)
	out, err := Marshal(g.Consumption(context.Background()), false)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"timestamp":"2025-03-09 07:05:03","thresholds":{"memory_kb":30000,"cpu_percent":2},"low_consumption":[`
	if !strings.HasPrefix(string(out), want) {
		t.Errorf("rendered = %s", out)
	}
	if !strings.Contains(string(out), `"high_consumption":[]`) {
		t.Errorf("empty high group not rendered as []: %s", out)
	}
}

func TestProcessSummary_Scenario(t *testing.T) {
	g := newTestGenerator(scenarioSource(), fixedClock)
	r := g.ProcessSummary(context.Background())
	want := models.ProcessSummaryReport{Running: 1, Total: 3, Sleeping: 2}
	if r != want {
		t.Errorf("ProcessSummary = %+v, want %+v", r, want)
	}
}

func TestGenerator_SourceFailureDegrades(t *testing.T) {
	src := &collector.StaticSource{Err: errors.New("provider unavailable")}
	g := newTestGenerator(src, fixedClock)
	ctx := context.Background()

	sys := g.System(ctx)
	if sys.ProcessSummary != (models.ActivityBlock{}) || len(sys.Processes) != 0 || sys.Memory != (models.MemoryBlock{}) {
		t.Errorf("System under failure = %+v", sys)
	}

	out, err := Marshal(g.Containers(ctx), false)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte(`"containers":[]`)) {
		t.Errorf("empty container list not rendered as []: %s", out)
	}
}

func TestRender_FieldOrder(t *testing.T) {
	g := newTestGenerator(scenarioSource(), fixedClock)
	ctx := context.Background()

	tests := []struct {
		kind Kind
		keys []string
	}{
		{KindSummary, []string{"procesos_corriendo", "total_procesos", "procesos_durmiendo", "procesos_zombie", "procesos_parados"}},
		{KindSystem, []string{"timestamp", "system", "kernel", "architecture", "hostname", "memory", "total_kb", "free_kb", "used_kb",
			"process_summary", "total", "running", "sleeping", "other", "processes",
			"pid", "ppid", "name", "cmdline", "vsz_kb", "rss_kb", "memory_percent", "cpu_percent", "state"}},
		{KindContainers, []string{"timestamp", "memory", "total_kb", "free_kb", "used_kb", "containers",
			"pid", "ppid", "name", "cmdline", "vsz_kb", "rss_kb", "memory_percent", "cpu_percent"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			doc, err := g.Generate(ctx, tt.kind)
			if err != nil {
				t.Fatal(err)
			}
			out, err := Marshal(doc, true)
			if err != nil {
				t.Fatal(err)
			}
			s := string(out)
			pos := 0
			for _, key := range tt.keys {
				i := strings.Index(s[pos:], `"`+key+`"`)
				if i < 0 {
					t.Fatalf("key %q missing or out of order in:\n%s", key, s)
				}
				pos += i
			}
			if tt.kind == KindContainers && strings.Contains(s, `"state"`) {
				t.Error("container report must not carry a state field")
			}
		})
	}
}

func TestRender_EscapesProcessStrings(t *testing.T) {
	src := scenarioSource()
	src.Processes[0].Comm = "evil\"name\n\x01"
	g := newTestGenerator(src, fixedClock)

	out, err := Marshal(g.System(context.Background()), true)
	if err != nil {
		t.Fatal(err)
	}

	var decoded models.SystemReport
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("rendered report is not valid JSON: %v\n%s", err, out)
	}
	if decoded.Processes[0].Name != "evil\"name\n\x01" {
		t.Errorf("Name round-tripped as %q", decoded.Processes[0].Name)
	}
}

func TestTruncate(t *testing.T) {
	short := "nginx"
	if got := Truncate(short); got != short {
		t.Errorf("Truncate(%q) = %q", short, got)
	}

	long := strings.Repeat("a", 300)
	got := Truncate(long)
	if len(got) != MaxLabelLen || !strings.HasSuffix(got, TruncationMarker) {
		t.Errorf("Truncate(300 bytes) len = %d, suffix ok = %v", len(got), strings.HasSuffix(got, TruncationMarker))
	}

	multi := strings.Repeat("é", 200)
	got = Truncate(multi)
	if len(got) > MaxLabelLen || !utf8.ValidString(got) {
		t.Errorf("Truncate split a rune: len=%d valid=%v", len(got), utf8.ValidString(got))
	}

	// Continuation bytes only: no rune start to back off to.
	invalid := "x" + strings.Repeat("\x80", 300)
	got = Truncate(invalid)
	if len(got) != MaxLabelLen || !strings.HasPrefix(got, "x\x80") {
		t.Errorf("Truncate(invalid UTF-8) len = %d, want %d with content kept", len(got), MaxLabelLen)
	}
}

func TestRender_TruncatesCmdline(t *testing.T) {
	src := scenarioSource()
	src.Processes[2].Cmdline = "runc " + strings.Repeat("--flag ", 100)
	g := newTestGenerator(src, fixedClock)

	out, err := Marshal(g.Containers(context.Background()), false)
	if err != nil {
		t.Fatal(err)
	}
	var decoded models.ContainerReport
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	if l := len(decoded.Containers[0].Cmdline); l != MaxLabelLen {
		t.Errorf("cmdline length = %d, want %d", l, MaxLabelLen)
	}
}

func TestGenerate_IdempotentExceptTimestamp(t *testing.T) {
	src := scenarioSource()
	tick := fixedClock()
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	g := newTestGenerator(src, clock)
	ctx := context.Background()

	for _, kind := range Kinds {
		a, _ := g.Generate(ctx, kind)
		b, _ := g.Generate(ctx, kind)
		first, _ := Marshal(a, true)
		second, _ := Marshal(b, true)
		if kind != KindSummary && bytes.Equal(first, second) {
			t.Errorf("%s: timestamps did not advance", kind)
		}
		if !bytes.Equal(stripTimestamp(t, first), stripTimestamp(t, second)) {
			t.Errorf("%s: reports differ beyond timestamp:\n%s\n%s", kind, first, second)
		}
	}
}

func stripTimestamp(t *testing.T, doc []byte) []byte {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(doc, &m); err != nil {
		t.Fatal(err)
	}
	delete(m, "timestamp")
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseKind("sysinfo"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
