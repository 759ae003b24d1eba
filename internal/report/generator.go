// Package report builds the three census documents and renders them as JSON.
// Every call re-queries the sources; nothing is cached between requests.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/procwatch/internal/census"
	"github.com/Guliveer/procwatch/internal/collector"
	"github.com/Guliveer/procwatch/internal/models"
)

// TimestampLayout is the "YYYY-MM-DD HH:MM:SS" format of the timestamp field.
const TimestampLayout = "2006-01-02 15:04:05"

// Kind selects one of the report documents.
type Kind string

const (
	KindSummary     Kind = "summary"
	KindSystem      Kind = "system"
	KindContainers  Kind = "containers"
	KindConsumption Kind = "consumption"
)

// Kinds lists every report kind.
var Kinds = []Kind{KindSummary, KindSystem, KindContainers, KindConsumption}

// ParseKind validates a report kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return "", fmt.Errorf("unknown report kind %q (expected one of %s)", s, strings.Join(names, ", "))
}

// Generator produces report documents from its sources.
type Generator struct {
	procs    collector.ProcessSource
	mem      collector.MemorySource
	host     collector.HostSource
	limits   census.Thresholds
	pageSize uint64
	now      func() time.Time
	loc      *time.Location
	logger   *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithLocation sets the zone timestamps are rendered in. Defaults to local time.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) { g.loc = loc }
}

// WithPageSize overrides the page size used to convert page counts to KiB.
func WithPageSize(size uint64) Option {
	return func(g *Generator) { g.pageSize = size }
}

// WithThresholds sets the consumption split limits. Defaults to
// census.DefaultThresholds.
func WithThresholds(t census.Thresholds) Option {
	return func(g *Generator) { g.limits = t }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator creates a generator over the given sources.
func NewGenerator(procs collector.ProcessSource, mem collector.MemorySource, host collector.HostSource, opts ...Option) *Generator {
	g := &Generator{
		procs:    procs,
		mem:      mem,
		host:     host,
		limits:   census.DefaultThresholds(),
		pageSize: collector.PageSize(),
		now:      time.Now,
		loc:      time.Local,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds the document of the given kind.
func (g *Generator) Generate(ctx context.Context, kind Kind) (interface{}, error) {
	switch kind {
	case KindSummary:
		return g.ProcessSummary(ctx), nil
	case KindSystem:
		return g.System(ctx), nil
	case KindContainers:
		return g.Containers(ctx), nil
	case KindConsumption:
		return g.Consumption(ctx), nil
	default:
		return nil, fmt.Errorf("unknown report kind %q", kind)
	}
}

// ProcessSummary builds the five-way process count document.
func (g *Generator) ProcessSummary(ctx context.Context) models.ProcessSummaryReport {
	c := census.Take(g.listProcesses(ctx), models.MemoryInfo{}, g.pageSize)
	return models.ProcessSummaryReport{
		Running:  c.Population.Running,
		Total:    c.Population.Total,
		Sleeping: c.Population.Sleeping,
		Zombie:   c.Population.Zombie,
		Stopped:  c.Population.Stopped,
	}
}

// System builds the full population document.
func (g *Generator) System(ctx context.Context) models.SystemReport {
	ts := g.timestamp()
	mem := g.memoryInfo(ctx)
	c := census.Take(g.listProcesses(ctx), mem, g.pageSize)

	id, err := g.host.Identity(ctx)
	if err != nil {
		g.logger.Warn("Host identity unavailable", zap.Error(err))
	}

	processes := make([]models.ProcessEntry, 0, len(c.Records))
	for _, r := range c.Records {
		processes = append(processes, models.ProcessEntry{
			PID:           r.PID,
			PPID:          r.PPID,
			Name:          r.Name,
			Cmdline:       r.Cmdline,
			VszKb:         r.VszKb,
			RssKb:         r.RssKb,
			MemoryPercent: r.MemoryPercent,
			CPUPercent:    r.CPUPercent,
			State:         r.State.String(),
		})
	}

	return models.SystemReport{
		Timestamp: ts,
		System: models.SystemBlock{
			Kernel:       id.Kernel,
			Architecture: id.Architecture,
			Hostname:     id.Hostname,
		},
		Memory: memoryBlock(mem),
		ProcessSummary: models.ActivityBlock{
			Total:    c.Activity.Total,
			Running:  c.Activity.Running,
			Sleeping: c.Activity.Sleeping,
			Other:    c.Activity.Other,
		},
		Processes: processes,
	}
}

// Containers builds the container-only document.
func (g *Generator) Containers(ctx context.Context) models.ContainerReport {
	ts := g.timestamp()
	mem := g.memoryInfo(ctx)
	c := census.Take(g.listProcesses(ctx), mem, g.pageSize)

	return models.ContainerReport{
		Timestamp:  ts,
		Memory:     memoryBlock(mem),
		Containers: containerEntries(c.Containers()),
	}
}

// Consumption builds the low/high consumption split of the container
// processes. It only reads; nothing is stopped or removed.
func (g *Generator) Consumption(ctx context.Context) models.ConsumptionReport {
	ts := g.timestamp()
	c := census.Take(g.listProcesses(ctx), g.memoryInfo(ctx), g.pageSize)

	low, high := census.SplitConsumption(c.Containers(), g.limits)
	g.logger.Debug("Split container consumption",
		zap.Int("low", len(low)),
		zap.Int("high", len(high)))

	return models.ConsumptionReport{
		Timestamp: ts,
		Thresholds: models.ConsumptionThresholds{
			MemoryKb: g.limits.MemoryKb,
			CPUScore: g.limits.CPUScore,
		},
		LowConsumption:  containerEntries(low),
		HighConsumption: containerEntries(high),
	}
}

func containerEntries(records []models.ProcessRecord) []models.ContainerEntry {
	entries := make([]models.ContainerEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, models.ContainerEntry{
			PID:           r.PID,
			PPID:          r.PPID,
			Name:          r.Name,
			Cmdline:       r.Cmdline,
			VszKb:         r.VszKb,
			RssKb:         r.RssKb,
			MemoryPercent: r.MemoryPercent,
			CPUPercent:    r.CPUPercent,
		})
	}
	return entries
}

// listProcesses degrades to an empty snapshot when the source fails.
func (g *Generator) listProcesses(ctx context.Context) []models.ProcessSnapshot {
	snaps, err := g.procs.ListProcesses(ctx)
	if err != nil {
		g.logger.Warn("Process source unavailable, reporting empty set", zap.Error(err))
		return nil
	}
	return snaps
}

// memoryInfo degrades to zero memory, which also zeroes every percentage.
func (g *Generator) memoryInfo(ctx context.Context) models.MemoryInfo {
	mem, err := g.mem.MemoryInfo(ctx)
	if err != nil {
		g.logger.Warn("Memory source unavailable, reporting zero memory", zap.Error(err))
		return models.MemoryInfo{}
	}
	return mem
}

func (g *Generator) timestamp() string {
	return g.now().In(g.loc).Format(TimestampLayout)
}

func memoryBlock(mem models.MemoryInfo) models.MemoryBlock {
	return models.MemoryBlock{
		TotalKb: mem.TotalKb,
		FreeKb:  mem.FreeKb,
		UsedKb:  mem.UsedKb(),
	}
}
