package census

import "github.com/Guliveer/procwatch/internal/models"

// Census is the result of one pass over a process snapshot. It is owned by a
// single report generation and never reused.
type Census struct {
	Records    []models.ProcessRecord
	ByState    map[models.State]int
	Population models.PopulationCounts
	Activity   models.ActivityCounts
	Memory     models.MemoryInfo
}

// Take folds the snapshot into records and totals in traversal order.
func Take(snaps []models.ProcessSnapshot, mem models.MemoryInfo, pageSize uint64) *Census {
	c := &Census{
		Records: make([]models.ProcessRecord, 0, len(snaps)),
		ByState: make(map[models.State]int, len(models.AllStates)),
		Memory:  mem,
	}

	for _, s := range snaps {
		c.Records = append(c.Records, Record(s, mem.TotalKb, pageSize))
		c.ByState[c.Records[len(c.Records)-1].State]++
		c.countPopulation(s)
		c.countActivity(s)
	}

	return c
}

// Record derives the full per-process record from a raw snapshot.
func Record(s models.ProcessSnapshot, totalKb, pageSize uint64) models.ProcessRecord {
	vsz, rss, label := MemoryMetrics(s, pageSize)
	state := Classify(s.RawState, s.Scheduled)
	return models.ProcessRecord{
		PID:           s.PID,
		PPID:          s.PPID,
		Name:          s.Comm,
		Cmdline:       label,
		VszKb:         vsz,
		RssKb:         rss,
		MemoryPercent: MemoryPercent(rss, totalKb),
		CPUPercent:    CPUScore(state),
		State:         state,
		IsContainer:   IsContainer(s.Comm, s.ParentComm),
	}
}

func (c *Census) countPopulation(s models.ProcessSnapshot) {
	c.Population.Total++
	switch PopulationBucket(s.RawState, s.Scheduled) {
	case PopRunning:
		c.Population.Running++
	case PopStopped:
		c.Population.Stopped++
	case PopZombie:
		c.Population.Zombie++
	default:
		c.Population.Sleeping++
	}
}

func (c *Census) countActivity(s models.ProcessSnapshot) {
	c.Activity.Total++
	switch ActivityBucket(s.RawState, s.Scheduled) {
	case ActRunning:
		c.Activity.Running++
	case ActSleeping:
		c.Activity.Sleeping++
	default:
		c.Activity.Other++
	}
}

// Containers returns the records flagged as container processes, preserving
// their relative order.
func (c *Census) Containers() []models.ProcessRecord {
	out := make([]models.ProcessRecord, 0)
	for _, r := range c.Records {
		if r.IsContainer {
			out = append(out, r)
		}
	}
	return out
}
