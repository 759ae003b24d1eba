// Process source, walks the live process table once per call.
// Uses gopsutil for listing and memory. The command name and scheduling letter
// are read from procfs stat directly: gopsutil reports stopped and traced tasks
// alike and expands full-width names from the command line.
package collector

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/Guliveer/procwatch/internal/models"
)

// statusLetters maps gopsutil status strings back to procfs letters. Used only
// when the stat file cannot be read.
var statusLetters = map[string]models.RawState{
	"running": models.RawRunning,
	"sleep":   models.RawSleeping,
	"blocked": models.RawDiskSleep,
	"stop":    models.RawStopped,
	"zombie":  models.RawZombie,
	"idle":    models.RawIdle,
	"wait":    models.RawWaking,
}

// GopsutilProcessSource lists processes through gopsutil and procfs.
type GopsutilProcessSource struct {
	procRoot    string
	fullCmdline bool
	pageSize    uint64
	logger      *zap.Logger
}

// NewProcessSource creates a process source reading procfs at procRoot.
// With fullCmdline set, user processes are labelled with their full command
// line instead of their short name.
func NewProcessSource(procRoot string, fullCmdline bool, logger *zap.Logger) *GopsutilProcessSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if procRoot == "" {
		procRoot = "/proc"
	}
	return &GopsutilProcessSource{
		procRoot:    procRoot,
		fullCmdline: fullCmdline,
		pageSize:    PageSize(),
		logger:      logger,
	}
}

// ListProcesses walks the process table. Processes that exit during the walk
// are skipped; parent names are resolved from the same walk.
func (s *GopsutilProcessSource) ListProcesses(ctx context.Context) ([]models.ProcessSnapshot, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	snaps := make([]models.ProcessSnapshot, 0, len(procs))
	names := make(map[int32]string, len(procs))

	for _, p := range procs {
		snap, ok := s.snapshot(ctx, p)
		if !ok {
			continue
		}
		names[snap.PID] = snap.Comm
		snaps = append(snaps, snap)
	}

	for i := range snaps {
		snaps[i].ParentComm = names[snaps[i].PPID]
	}

	s.logger.Debug("Walked process table",
		zap.Int("listed", len(procs)),
		zap.Int("kept", len(snaps)))

	return snaps, nil
}

func (s *GopsutilProcessSource) snapshot(ctx context.Context, p *process.Process) (models.ProcessSnapshot, bool) {
	comm, raw, err := readStat(s.procRoot, p.Pid)
	if err != nil {
		// gopsutil expands 15-character names from the command line, so it
		// is only a fallback.
		if comm, err = p.NameWithContext(ctx); err != nil {
			s.logger.Debug("Process vanished during walk",
				zap.Int32("pid", p.Pid),
				zap.Error(err))
			return models.ProcessSnapshot{}, false
		}
		status, _ := p.StatusWithContext(ctx)
		raw = statusToRaw(status)
	}
	mi, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		s.logger.Debug("Process vanished during walk",
			zap.Int32("pid", p.Pid),
			zap.Error(err))
		return models.ProcessSnapshot{}, false
	}
	ppid, _ := p.PpidWithContext(ctx)

	snap := models.ProcessSnapshot{
		PID:           p.Pid,
		PPID:          ppid,
		Comm:          comm,
		RawState:      raw,
		Scheduled:     raw == models.RawRunning,
		ResidentPages: mi.RSS / s.pageSize,
		VirtualPages:  mi.VMS / s.pageSize,
	}

	if s.fullCmdline && snap.HasAddressSpace() {
		if cmd, err := p.CmdlineWithContext(ctx); err == nil {
			snap.Cmdline = cmd
		}
	}

	return snap, true
}

// readStat reads the command name and state letter from <root>/<pid>/stat.
func readStat(root string, pid int32) (string, models.RawState, error) {
	data, err := os.ReadFile(filepath.Join(root, strconv.Itoa(int(pid)), "stat"))
	if err != nil {
		return "", "", err
	}
	return parseStat(data)
}

// parseStat splits a stat line. The command name sits between the first '('
// and the last ')' and may itself contain spaces and parentheses.
func parseStat(data []byte) (string, models.RawState, error) {
	l := bytes.IndexByte(data, '(')
	r := bytes.LastIndexByte(data, ')')
	if l < 0 || r < l {
		return "", "", fmt.Errorf("malformed stat line")
	}
	fields := bytes.Fields(data[r+1:])
	if len(fields) == 0 || len(fields[0]) != 1 {
		return "", "", fmt.Errorf("malformed stat state field")
	}
	return string(data[l+1 : r]), models.RawState(fields[0]), nil
}

func statusToRaw(status []string) models.RawState {
	if len(status) == 0 {
		return ""
	}
	return statusLetters[status[0]]
}
