package census

import (
	"sort"
	"strings"

	"github.com/Guliveer/procwatch/internal/models"
)

// Thresholds split container processes into low and high consumption.
type Thresholds struct {
	// MemoryKb is the resident size above which a process is high consumption.
	MemoryKb uint64
	// CPUScore is the activity score above which a process is high
	// consumption. Scores are ordinal (see CPUScore), so 2 marks running
	// processes.
	CPUScore int
	// Exclude lists case-insensitive substrings of a name or command line
	// that drop a process from both groups, e.g. monitoring sidecars.
	Exclude []string
}

// DefaultThresholds returns 30000 KiB resident, running state and the
// runtime daemons plus grafana excluded.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MemoryKb: 30000,
		CPUScore: CPUScoreSleeping + 1,
		Exclude:  []string{"grafana", "containerd", "dockerd"},
	}
}

// Excluded reports whether r matches one of the exclusion substrings.
func (t Thresholds) Excluded(r models.ProcessRecord) bool {
	name := strings.ToLower(r.Name)
	cmd := strings.ToLower(r.Cmdline)
	for _, ex := range t.Exclude {
		ex = strings.ToLower(strings.TrimSpace(ex))
		if ex == "" {
			continue
		}
		if strings.Contains(name, ex) || strings.Contains(cmd, ex) {
			return true
		}
	}
	return false
}

// SplitConsumption partitions records into low and high consumption groups.
// A record is high when its resident size or activity score exceeds the
// threshold. Both groups are ordered by resident size, largest first; equal
// sizes keep their input order. The input slice is not modified.
func SplitConsumption(records []models.ProcessRecord, t Thresholds) (low, high []models.ProcessRecord) {
	low = make([]models.ProcessRecord, 0)
	high = make([]models.ProcessRecord, 0)
	for _, r := range records {
		if t.Excluded(r) {
			continue
		}
		if r.RssKb > t.MemoryKb || r.CPUPercent > t.CPUScore {
			high = append(high, r)
		} else {
			low = append(low, r)
		}
	}
	byRSS := func(s []models.ProcessRecord) func(i, j int) bool {
		return func(i, j int) bool { return s[i].RssKb > s[j].RssKb }
	}
	sort.SliceStable(low, byRSS(low))
	sort.SliceStable(high, byRSS(high))
	return low, high
}
