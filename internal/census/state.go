// Package census classifies and measures a point-in-time process snapshot
// and folds it into the per-report totals.
//
// Three classification tables live here and are kept independent:
//   - Classify: the canonical per-process state written to each record.
//   - PopulationBucket: the five-way tally of the process-summary report,
//     which counts any unrecognized code as sleeping.
//   - ActivityBucket: the three-way running/sleeping/other tally of the
//     system report.
//
// The two coarse tables disagree on where stopped, traced, zombie and unknown
// tasks land. That disagreement is inherited from the reports' consumers and
// must not be reconciled silently.
package census

import "github.com/Guliveer/procwatch/internal/models"

// Classify maps a raw scheduling code to its canonical state. A task the host
// reports as actively scheduled is RUNNING regardless of its raw code.
func Classify(raw models.RawState, scheduled bool) models.State {
	if scheduled {
		return models.StateRunning
	}
	switch raw {
	case models.RawRunning:
		return models.StateRunning
	case models.RawSleeping:
		return models.StateInterruptibleSleep
	case models.RawDiskSleep:
		return models.StateUninterruptibleSleep
	case models.RawStopped:
		return models.StateStopped
	case models.RawTracingStop:
		return models.StateTraced
	case models.RawZombie:
		return models.StateZombie
	default:
		return models.StateOther
	}
}

// Population is a bucket of the process-summary report.
type Population int

const (
	PopRunning Population = iota
	PopSleeping
	PopStopped
	PopZombie
)

// PopulationBucket places a task in the process-summary report. Codes the
// table does not know fall back to sleeping so no task is lost from the total.
func PopulationBucket(raw models.RawState, scheduled bool) Population {
	if scheduled {
		return PopRunning
	}
	switch raw {
	case models.RawRunning:
		return PopRunning
	case models.RawSleeping, models.RawDiskSleep:
		return PopSleeping
	case models.RawStopped, models.RawTracingStop:
		return PopStopped
	case models.RawZombie:
		return PopZombie
	default:
		return PopSleeping
	}
}

// Activity is a bucket of the system report's process summary.
type Activity int

const (
	ActRunning Activity = iota
	ActSleeping
	ActOther
)

// ActivityBucket places a task in the system report summary. Stopped,
// traced, zombie and unknown tasks all count as other.
func ActivityBucket(raw models.RawState, scheduled bool) Activity {
	if scheduled {
		return ActRunning
	}
	switch raw {
	case models.RawRunning:
		return ActRunning
	case models.RawSleeping, models.RawDiskSleep:
		return ActSleeping
	default:
		return ActOther
	}
}
