// Package models defines the process census data structures used throughout procwatch.
// Report documents are serialized to JSON with field names fixed for existing consumers.
package models

// RawState is the host-defined scheduling code of a process. On Linux it is
// the single-letter state from /proc/<pid>/stat.
type RawState string

// Linux scheduling codes as reported by procfs.
const (
	RawRunning     RawState = "R"
	RawSleeping    RawState = "S"
	RawDiskSleep   RawState = "D"
	RawStopped     RawState = "T"
	RawTracingStop RawState = "t"
	RawZombie      RawState = "Z"
	RawDead        RawState = "X"
	RawIdle        RawState = "I"
	RawParked      RawState = "P"
	RawWaking      RawState = "W"
	RawWakeKill    RawState = "K"
)

// ProcessSnapshot is one raw process record as returned by a process source.
type ProcessSnapshot struct {
	PID        int32
	PPID       int32
	Comm       string
	ParentComm string
	RawState   RawState

	// Scheduled reports whether the host considers the task actively scheduled.
	Scheduled bool

	ResidentPages uint64
	VirtualPages  uint64

	// Cmdline is the full command line when the source supplies one.
	Cmdline string
}

// HasAddressSpace is false for kernel helper tasks, which map no user memory.
func (s ProcessSnapshot) HasAddressSpace() bool {
	return s.VirtualPages > 0
}

// State is the canonical scheduling category of a process.
type State int

const (
	StateRunning State = iota
	StateInterruptibleSleep
	StateUninterruptibleSleep
	StateStopped
	StateTraced
	StateZombie
	StateOther
)

// AllStates lists every canonical state in declaration order.
var AllStates = []State{
	StateRunning,
	StateInterruptibleSleep,
	StateUninterruptibleSleep,
	StateStopped,
	StateTraced,
	StateZombie,
	StateOther,
}

// String returns the label written to the "state" field of the system report.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateInterruptibleSleep:
		return "INTERRUPTIBLE"
	case StateUninterruptibleSleep:
		return "UNINTERRUPTIBLE"
	case StateStopped:
		return "STOPPED"
	case StateTraced:
		return "TRACED"
	case StateZombie:
		return "ZOMBIE"
	default:
		return "OTHER"
	}
}

// ProcessRecord is the derived, per-report view of a single process.
type ProcessRecord struct {
	PID           int32
	PPID          int32
	Name          string
	Cmdline       string
	VszKb         uint64
	RssKb         uint64
	MemoryPercent uint64
	CPUPercent    int
	State         State
	IsContainer   bool
}

// MemoryInfo is the system-wide memory figure in KiB.
type MemoryInfo struct {
	TotalKb uint64
	FreeKb  uint64
}

// UsedKb returns total minus free, never wrapping below zero.
func (m MemoryInfo) UsedKb() uint64 {
	if m.FreeKb > m.TotalKb {
		return 0
	}
	return m.TotalKb - m.FreeKb
}

// SystemIdentity names the running kernel and host.
type SystemIdentity struct {
	Kernel       string
	Architecture string
	Hostname     string
}

// PopulationCounts is the five-way tally used by the process-summary report.
type PopulationCounts struct {
	Total    int
	Running  int
	Sleeping int
	Zombie   int
	Stopped  int
}

// ActivityCounts is the three-way tally used by the system report.
type ActivityCounts struct {
	Total    int
	Running  int
	Sleeping int
	Other    int
}
