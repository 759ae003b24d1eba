package models

import (
	"encoding/json"
	"time"
)

// ProcessSummaryReport is the five-way process count document.
type ProcessSummaryReport struct {
	Running  int `json:"procesos_corriendo"`
	Total    int `json:"total_procesos"`
	Sleeping int `json:"procesos_durmiendo"`
	Zombie   int `json:"procesos_zombie"`
	Stopped  int `json:"procesos_parados"`
}

// SystemBlock identifies the host in the system report.
type SystemBlock struct {
	Kernel       string `json:"kernel"`
	Architecture string `json:"architecture"`
	Hostname     string `json:"hostname"`
}

// MemoryBlock is the memory section shared by the system and container reports.
type MemoryBlock struct {
	TotalKb uint64 `json:"total_kb"`
	FreeKb  uint64 `json:"free_kb"`
	UsedKb  uint64 `json:"used_kb"`
}

// ActivityBlock is the coarse running/sleeping/other summary.
type ActivityBlock struct {
	Total    int `json:"total"`
	Running  int `json:"running"`
	Sleeping int `json:"sleeping"`
	Other    int `json:"other"`
}

// ProcessEntry is one element of the system report's process list.
type ProcessEntry struct {
	PID           int32  `json:"pid"`
	PPID          int32  `json:"ppid"`
	Name          string `json:"name"`
	Cmdline       string `json:"cmdline"`
	VszKb         uint64 `json:"vsz_kb"`
	RssKb         uint64 `json:"rss_kb"`
	MemoryPercent uint64 `json:"memory_percent"`
	CPUPercent    int    `json:"cpu_percent"`
	State         string `json:"state"`
}

// ContainerEntry is one element of the container report. It carries no state.
type ContainerEntry struct {
	PID           int32  `json:"pid"`
	PPID          int32  `json:"ppid"`
	Name          string `json:"name"`
	Cmdline       string `json:"cmdline"`
	VszKb         uint64 `json:"vsz_kb"`
	RssKb         uint64 `json:"rss_kb"`
	MemoryPercent uint64 `json:"memory_percent"`
	CPUPercent    int    `json:"cpu_percent"`
}

// SystemReport is the full population document.
type SystemReport struct {
	Timestamp      string         `json:"timestamp"`
	System         SystemBlock    `json:"system"`
	Memory         MemoryBlock    `json:"memory"`
	ProcessSummary ActivityBlock  `json:"process_summary"`
	Processes      []ProcessEntry `json:"processes"`
}

// ContainerReport is the container-only document.
type ContainerReport struct {
	Timestamp  string           `json:"timestamp"`
	Memory     MemoryBlock      `json:"memory"`
	Containers []ContainerEntry `json:"containers"`
}

// ConsumptionThresholds echoes the limits a consumption report was split by.
type ConsumptionThresholds struct {
	MemoryKb uint64 `json:"memory_kb"`
	CPUScore int    `json:"cpu_percent"`
}

// ConsumptionReport splits the container processes into low and high
// consumption groups, each ordered by resident size, largest first.
type ConsumptionReport struct {
	Timestamp       string                `json:"timestamp"`
	Thresholds      ConsumptionThresholds `json:"thresholds"`
	LowConsumption  []ContainerEntry      `json:"low_consumption"`
	HighConsumption []ContainerEntry      `json:"high_consumption"`
}

// Envelope wraps one generated report for shipping.
type Envelope struct {
	Kind        string          `json:"kind"`
	CollectedAt time.Time       `json:"collected_at"`
	Report      json.RawMessage `json:"report"`
}

// ReportBatch is the payload sent to the ingest API via POST /api/reports.
type ReportBatch struct {
	AgentToken string     `json:"agent_token"`
	Reports    []Envelope `json:"reports"`
}
