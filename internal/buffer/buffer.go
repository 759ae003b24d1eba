// Package buffer provides a local file-based buffer for offline report storage.
// Batches are written as timestamped JSON files when the API is unavailable,
// so they survive crashes and reboots. A size cap drops the oldest batches.
package buffer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/procwatch/internal/models"
)

// Buffer provides local file-based storage for report batches.
// Each batch is stored as a separate timestamped JSON file in the configured directory.
type Buffer struct {
	dir       string
	maxSizeMB int
	logger    *zap.Logger
	mu        sync.Mutex
	now       func() time.Time
}

// New creates a new file-based buffer at the given directory path.
// The directory is created if it does not exist.
func New(dir string, maxSizeMB int, logger *zap.Logger) (*Buffer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating buffer dir: %w", err)
	}
	return &Buffer{
		dir:       dir,
		maxSizeMB: maxSizeMB,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Store saves a batch of envelopes to a timestamped JSON file.
// If the buffer exceeds the configured size limit, the oldest batch is dropped.
func (b *Buffer) Store(batch []models.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.currentSizeMB() >= b.maxSizeMB {
		b.logger.Warn("Buffer full, dropping oldest batch")
		b.dropOldest()
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}

	// Nanosecond resolution keeps names unique and lexically chronological.
	name := b.now().UTC().Format("20060102T150405.000000000") + ".json"
	return os.WriteFile(filepath.Join(b.dir, name), data, 0640)
}

// RetrieveAll reads all buffered batches and removes the corresponding files.
// Corrupted files are removed and logged. Returns batches in chronological order.
func (b *Buffer) RetrieveAll() ([][]models.Envelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	files, err := b.batchFiles()
	if err != nil {
		return nil, err
	}

	var batches [][]models.Envelope
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("Failed to read buffer file",
				zap.String("file", path),
				zap.Error(err))
			continue
		}

		var batch []models.Envelope
		if err := json.Unmarshal(data, &batch); err != nil {
			b.logger.Warn("Failed to parse buffer file, removing corrupted file",
				zap.String("file", path),
				zap.Error(err))
			os.Remove(path)
			continue
		}

		batches = append(batches, batch)
		os.Remove(path)
	}

	return batches, nil
}

// Count returns the number of buffered batch files.
func (b *Buffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	files, err := b.batchFiles()
	if err != nil {
		return 0
	}
	return len(files)
}

// batchFiles returns buffered batch paths, oldest first.
// Must be called with b.mu held.
func (b *Buffer) batchFiles() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("reading buffer dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			files = append(files, filepath.Join(b.dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// currentSizeMB returns the total size of all buffer files in megabytes.
// Must be called with b.mu held.
func (b *Buffer) currentSizeMB() int {
	var totalSize int64
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0
	}
	for _, entry := range entries {
		if info, err := entry.Info(); err == nil {
			totalSize += info.Size()
		}
	}
	return int(totalSize / (1024 * 1024))
}

// dropOldest removes the oldest buffer file to free space.
// Must be called with b.mu held.
func (b *Buffer) dropOldest() {
	files, err := b.batchFiles()
	if err != nil || len(files) == 0 {
		return
	}
	if err := os.Remove(files[0]); err != nil {
		b.logger.Warn("Failed to remove oldest buffer file",
			zap.String("file", files[0]),
			zap.Error(err))
	}
}
