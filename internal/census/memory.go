package census

import "github.com/Guliveer/procwatch/internal/models"

// MemoryMetrics derives the VSZ/RSS figures in KiB and the display label of a
// process. Tasks without an address space report zero and a bracketed label.
func MemoryMetrics(s models.ProcessSnapshot, pageSize uint64) (vszKb, rssKb uint64, label string) {
	if !s.HasAddressSpace() {
		return 0, 0, "[" + s.Comm + "]"
	}
	vszKb = s.VirtualPages * pageSize / 1024
	rssKb = s.ResidentPages * pageSize / 1024
	label = s.Cmdline
	if label == "" {
		label = s.Comm
	}
	return vszKb, rssKb, label
}

// MemoryPercent returns rssKb as a truncated percentage of totalKb, or 0 when
// the total is unknown. The result is not clamped: pages shared between
// processes are counted once per process and can push it past 100.
func MemoryPercent(rssKb, totalKb uint64) uint64 {
	if totalKb == 0 {
		return 0
	}
	return rssKb * 100 / totalKb
}
