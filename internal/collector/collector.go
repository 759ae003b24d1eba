// Package collector defines the sources a census pass reads from and
// provides gopsutil-backed implementations of them.
package collector

import (
	"context"

	"github.com/Guliveer/procwatch/internal/models"
)

// ProcessSource yields a materialized list of processes for "now".
// Implementations must be safe for concurrent callers; the list may be
// weakly consistent with processes starting or exiting during the walk.
type ProcessSource interface {
	ListProcesses(ctx context.Context) ([]models.ProcessSnapshot, error)
}

// MemorySource reports system-wide memory in KiB.
type MemorySource interface {
	MemoryInfo(ctx context.Context) (models.MemoryInfo, error)
}

// HostSource identifies the running kernel and host.
type HostSource interface {
	Identity(ctx context.Context) (models.SystemIdentity, error)
}

// StaticSource serves a fixed snapshot. It is used to replay captured
// snapshots and in tests.
type StaticSource struct {
	Processes []models.ProcessSnapshot
	Memory    models.MemoryInfo
	Host      models.SystemIdentity
	Err       error
}

// ListProcesses returns a copy of the fixed snapshot.
func (s *StaticSource) ListProcesses(ctx context.Context) ([]models.ProcessSnapshot, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]models.ProcessSnapshot, len(s.Processes))
	copy(out, s.Processes)
	return out, nil
}

// MemoryInfo returns the fixed memory figures.
func (s *StaticSource) MemoryInfo(ctx context.Context) (models.MemoryInfo, error) {
	if s.Err != nil {
		return models.MemoryInfo{}, s.Err
	}
	return s.Memory, nil
}

// Identity returns the fixed host identity.
func (s *StaticSource) Identity(ctx context.Context) (models.SystemIdentity, error) {
	if s.Err != nil {
		return models.SystemIdentity{}, s.Err
	}
	return s.Host, nil
}
