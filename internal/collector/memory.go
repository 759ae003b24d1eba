// System memory source, gathers total and free RAM.
// Uses gopsutil for cross-platform memory metrics.
package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Guliveer/procwatch/internal/models"
)

// GopsutilMemorySource reads system memory through gopsutil.
type GopsutilMemorySource struct{}

// NewMemorySource creates a new memory source.
func NewMemorySource() *GopsutilMemorySource {
	return &GopsutilMemorySource{}
}

// MemoryInfo returns total and free RAM in KiB. Free is the kernel's MemFree,
// not MemAvailable, so used = total - free includes page cache.
func (s *GopsutilMemorySource) MemoryInfo(ctx context.Context) (models.MemoryInfo, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return models.MemoryInfo{}, err
	}
	return models.MemoryInfo{
		TotalKb: v.Total / 1024,
		FreeKb:  v.Free / 1024,
	}, nil
}
