// Package scheduler implements a tick-based periodic report scheduler.
// It generates the configured reports at a fixed interval and batches them
// for transmission. The scheduler does not send data itself; it invokes a
// callback when a batch is ready.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/procwatch/internal/models"
	"github.com/Guliveer/procwatch/internal/report"
)

// collectTimeout bounds a single round of report generation.
const collectTimeout = 10 * time.Second

// Generator builds a report document of a given kind.
type Generator interface {
	Generate(ctx context.Context, kind report.Kind) (interface{}, error)
}

// Scheduler manages periodic report generation and batching.
type Scheduler struct {
	gen           Generator
	kinds         []report.Kind
	interval      time.Duration
	batchInterval time.Duration
	logger        *zap.Logger
	now           func() time.Time

	batch   []models.Envelope
	batchMu sync.Mutex

	onBatchReady func([]models.Envelope)
}

// New creates a Scheduler generating kinds every interval and flushing every
// batchInterval.
func New(gen Generator, kinds []report.Kind, interval, batchInterval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		gen:           gen,
		kinds:         kinds,
		interval:      interval,
		batchInterval: batchInterval,
		logger:        logger,
		now:           time.Now,
		batch:         make([]models.Envelope, 0),
	}
}

// OnBatchReady sets the callback invoked when a batch of reports is ready.
// The callback is responsible for transmission or buffering.
func (s *Scheduler) OnBatchReady(fn func([]models.Envelope)) {
	s.onBatchReady = fn
}

// Start begins the collection and batching loops. It blocks until the context
// is cancelled. On shutdown, it flushes any remaining batch.
func (s *Scheduler) Start(ctx context.Context) {
	collectTicker := time.NewTicker(s.interval)
	batchTicker := time.NewTicker(s.batchInterval)

	defer collectTicker.Stop()
	defer batchTicker.Stop()

	s.collect(ctx)

	for {
		select {
		case <-ctx.Done():
			s.flushBatch()
			return
		case <-collectTicker.C:
			s.collect(ctx)
		case <-batchTicker.C:
			s.flushBatch()
		}
	}
}

// collect generates every configured report and appends it to the batch.
func (s *Scheduler) collect(ctx context.Context) {
	collectCtx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	collected := make([]models.Envelope, 0, len(s.kinds))
	for _, kind := range s.kinds {
		env, err := s.envelope(collectCtx, kind)
		if err != nil {
			s.logger.Warn("Report generation failed",
				zap.String("kind", string(kind)),
				zap.Error(err))
			continue
		}
		collected = append(collected, env)
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, collected...)
	s.batchMu.Unlock()

	s.logger.Debug("Collected reports", zap.Int("count", len(collected)))
}

func (s *Scheduler) envelope(ctx context.Context, kind report.Kind) (models.Envelope, error) {
	doc, err := s.gen.Generate(ctx, kind)
	if err != nil {
		return models.Envelope{}, err
	}
	data, err := report.Marshal(doc, false)
	if err != nil {
		return models.Envelope{}, err
	}
	return models.Envelope{
		Kind:        string(kind),
		CollectedAt: s.now().UTC(),
		Report:      json.RawMessage(bytes.TrimSpace(data)),
	}, nil
}

// flushBatch sends the current batch via the callback and resets the buffer.
func (s *Scheduler) flushBatch() {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batch := s.batch
	s.batch = make([]models.Envelope, 0)
	s.batchMu.Unlock()

	s.logger.Info("Flushing batch", zap.Int("count", len(batch)))

	if s.onBatchReady != nil {
		s.onBatchReady(batch)
	}
}
