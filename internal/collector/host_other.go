//go:build !unix

package collector

import (
	"context"
	"os"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/Guliveer/procwatch/internal/models"
)

// GopsutilHostSource identifies the host through gopsutil only.
type GopsutilHostSource struct{}

// NewHostSource creates a new host identity source.
func NewHostSource() *GopsutilHostSource {
	return &GopsutilHostSource{}
}

// Identity returns the kernel release, architecture and hostname.
func (s *GopsutilHostSource) Identity(ctx context.Context) (models.SystemIdentity, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return models.SystemIdentity{}, err
	}
	return models.SystemIdentity{
		Kernel:       info.KernelVersion,
		Architecture: info.KernelArch,
		Hostname:     info.Hostname,
	}, nil
}

// PageSize returns the host memory page size in bytes.
func PageSize() uint64 {
	return uint64(os.Getpagesize())
}
