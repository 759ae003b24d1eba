// Package sender implements the HTTP batch sender with retry logic.
// It marshals report batches to JSON, compresses with gzip, and POSTs
// them to the ingest endpoint with exponential backoff on failure.
package sender

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/procwatch/internal/models"
)

const (
	// maxRetries is the maximum number of retry attempts before buffering locally.
	maxRetries = 3

	// baseRetryDelay is the base delay for exponential backoff between retries.
	baseRetryDelay = 2 * time.Second

	// requestTimeout is the HTTP request timeout for each send attempt.
	requestTimeout = 10 * time.Second
)

// Store keeps batches that could not be delivered.
type Store interface {
	Store(batch []models.Envelope) error
	RetrieveAll() ([][]models.Envelope, error)
}

// Sender handles batch transmission of reports with retry logic and local
// buffering as a fallback when the server is unreachable.
type Sender struct {
	client    *http.Client
	url       string
	token     string
	logger    *zap.Logger
	buf       Store
	baseDelay time.Duration
}

// New creates a Sender posting to <baseURL>/api/reports. buf may be nil, in
// which case undeliverable batches are dropped.
func New(baseURL, token string, logger *zap.Logger, buf Store) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		client: &http.Client{
			Timeout: requestTimeout,
		},
		url:       strings.TrimRight(baseURL, "/") + "/api/reports",
		token:     token,
		logger:    logger,
		buf:       buf,
		baseDelay: baseRetryDelay,
	}
}

// Send attempts to deliver a batch. On failure after all retries, or
// immediately on rate limiting, the batch is buffered locally.
func (s *Sender) Send(ctx context.Context, reports []models.Envelope) {
	payload, err := s.encode(reports)
	if err != nil {
		s.logger.Error("Failed to encode batch", zap.Error(err))
		s.bufferBatch(reports)
		return
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * s.baseDelay
			s.logger.Warn("Retrying send",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				s.logger.Warn("Send interrupted by shutdown, buffering batch")
				s.bufferBatch(reports)
				return
			}
		}

		err := s.doSend(ctx, payload)
		if err == nil {
			s.logger.Debug("Batch sent successfully", zap.Int("reports", len(reports)))
			return
		}

		if isRateLimited(err) {
			s.logger.Warn("Rate limited by server, buffering batch", zap.Error(err))
			s.bufferBatch(reports)
			return
		}

		s.logger.Warn("Send failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	s.logger.Error("All retries exhausted, buffering batch")
	s.bufferBatch(reports)
}

func (s *Sender) encode(reports []models.Envelope) ([]byte, error) {
	data, err := json.Marshal(models.ReportBatch{
		AgentToken: s.token,
		Reports:    reports,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("compress batch: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("finalize gzip: %w", err)
	}
	return compressed.Bytes(), nil
}

// doSend performs a single HTTP POST to the ingest endpoint.
func (s *Sender) doSend(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &rateLimitError{statusCode: resp.StatusCode}
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}

// bufferBatch stores a failed batch in the local buffer.
func (s *Sender) bufferBatch(reports []models.Envelope) {
	if s.buf == nil {
		s.logger.Warn("No buffer available, dropping reports",
			zap.Int("count", len(reports)))
		return
	}
	if err := s.buf.Store(reports); err != nil {
		s.logger.Error("Failed to buffer reports", zap.Error(err))
	}
}

// FlushBuffer attempts to send all previously buffered batches.
// Called on startup to drain batches stored during prior outages.
func (s *Sender) FlushBuffer(ctx context.Context) {
	if s.buf == nil {
		return
	}

	batches, err := s.buf.RetrieveAll()
	if err != nil {
		s.logger.Error("Failed to retrieve buffered reports", zap.Error(err))
		return
	}
	if len(batches) == 0 {
		return
	}

	s.logger.Info("Flushing buffered reports", zap.Int("batches", len(batches)))
	for _, batch := range batches {
		s.Send(ctx, batch)
	}
}

// rateLimitError indicates the server returned HTTP 429.
type rateLimitError struct {
	statusCode int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%d)", e.statusCode)
}

func isRateLimited(err error) bool {
	var rl *rateLimitError
	return errors.As(err, &rl)
}
