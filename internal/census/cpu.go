package census

import "github.com/Guliveer/procwatch/internal/models"

// CPU activity scores. A single snapshot has no time delta, so these are
// ordinal hints derived from state, not utilization.
const (
	CPUScoreIdle     = 0
	CPUScoreSleeping = 1
	CPUScoreRunning  = 3
)

// CPUScore maps a canonical state to its activity score.
func CPUScore(s models.State) int {
	switch s {
	case models.StateRunning:
		return CPUScoreRunning
	case models.StateInterruptibleSleep, models.StateUninterruptibleSleep:
		return CPUScoreSleeping
	default:
		return CPUScoreIdle
	}
}
