//go:build unix

// Host identity source, gathers kernel release, machine and hostname.
// Uses gopsutil host info, falling back to uname(2). A successful result is
// cached since none of the fields change while the process runs.
package collector

import (
	"context"
	"sync"

	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sys/unix"

	"github.com/Guliveer/procwatch/internal/models"
)

// GopsutilHostSource identifies the host and caches the first successful
// result. Failed lookups are retried on the next call.
type GopsutilHostSource struct {
	mu       sync.Mutex
	cached   bool
	identity models.SystemIdentity
	lookup   func(context.Context) (models.SystemIdentity, error)
}

// NewHostSource creates a new host identity source.
func NewHostSource() *GopsutilHostSource {
	return &GopsutilHostSource{lookup: collectIdentity}
}

// Identity returns the kernel release, architecture and hostname.
func (s *GopsutilHostSource) Identity(ctx context.Context) (models.SystemIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached {
		return s.identity, nil
	}
	id, err := s.lookup(ctx)
	if err != nil {
		return models.SystemIdentity{}, err
	}
	s.identity, s.cached = id, true
	return id, nil
}

func collectIdentity(ctx context.Context) (models.SystemIdentity, error) {
	info, err := host.InfoWithContext(ctx)
	if err == nil && info.KernelVersion != "" {
		return models.SystemIdentity{
			Kernel:       info.KernelVersion,
			Architecture: info.KernelArch,
			Hostname:     info.Hostname,
		}, nil
	}
	return unameIdentity()
}

// unameIdentity reads the same fields straight from uname(2).
func unameIdentity() (models.SystemIdentity, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return models.SystemIdentity{}, err
	}
	return models.SystemIdentity{
		Kernel:       unix.ByteSliceToString(u.Release[:]),
		Architecture: unix.ByteSliceToString(u.Machine[:]),
		Hostname:     unix.ByteSliceToString(u.Nodename[:]),
	}, nil
}

// PageSize returns the host memory page size in bytes.
func PageSize() uint64 {
	return uint64(unix.Getpagesize())
}
