package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// KeyToucher stamps last_used_at for a key hash
type KeyToucher interface {
	TouchByHash(ctx context.Context, keyHash string) error
}

// LastUsedWorker batches last_used_at updates for station keys.
// A terminal polls constantly during an election, so writes are debounced per key.
type LastUsedWorker struct {
	keys   KeyToucher
	logger *slog.Logger

	updateCh chan string

	recentlyUpdated map[string]time.Time
	mu              sync.RWMutex

	debounceInterval time.Duration
	batchInterval    time.Duration
	maxBatchSize     int

	done chan struct{}
	wg   sync.WaitGroup
}

type LastUsedWorkerConfig struct {
	BufferSize       int           // default 1000
	DebounceInterval time.Duration // default 1 minute
	BatchInterval    time.Duration // default 5 seconds
	MaxBatchSize     int           // default 100
}

func DefaultLastUsedWorkerConfig() LastUsedWorkerConfig {
	return LastUsedWorkerConfig{
		BufferSize:       1000,
		DebounceInterval: time.Minute,
		BatchInterval:    5 * time.Second,
		MaxBatchSize:     100,
	}
}

func NewLastUsedWorker(keys KeyToucher, logger *slog.Logger, config LastUsedWorkerConfig) *LastUsedWorker {
	def := DefaultLastUsedWorkerConfig()
	if config.BufferSize == 0 {
		config.BufferSize = def.BufferSize
	}
	if config.DebounceInterval == 0 {
		config.DebounceInterval = def.DebounceInterval
	}
	if config.BatchInterval == 0 {
		config.BatchInterval = def.BatchInterval
	}
	if config.MaxBatchSize == 0 {
		config.MaxBatchSize = def.MaxBatchSize
	}

	return &LastUsedWorker{
		keys:             keys,
		logger:           logger,
		updateCh:         make(chan string, config.BufferSize),
		recentlyUpdated:  make(map[string]time.Time),
		debounceInterval: config.DebounceInterval,
		batchInterval:    config.BatchInterval,
		maxBatchSize:     config.MaxBatchSize,
		done:             make(chan struct{}),
	}
}

func (w *LastUsedWorker) Start() {
	w.wg.Add(1)
	go w.run()
	w.logger.Info("last used worker started",
		"buffer_size", cap(w.updateCh),
		"debounce_interval", w.debounceInterval,
	)
}

// Stop flushes the pending batch and waits for the loop to exit
func (w *LastUsedWorker) Stop() {
	close(w.done)
	w.wg.Wait()
	w.logger.Info("last used worker stopped")
}

// Enqueue never blocks; updates are dropped when the buffer is full
func (w *LastUsedWorker) Enqueue(keyHash string) {
	w.mu.RLock()
	last, seen := w.recentlyUpdated[keyHash]
	w.mu.RUnlock()

	if seen && time.Since(last) < w.debounceInterval {
		return
	}

	select {
	case w.updateCh <- keyHash:
	default:
		w.logger.Debug("last used update dropped, buffer full")
	}
}

func (w *LastUsedWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.batchInterval)
	defer ticker.Stop()

	cleanup := time.NewTicker(5 * time.Minute)
	defer cleanup.Stop()

	var batch []string

	for {
		select {
		case <-w.done:
		drain:
			for {
				select {
				case h := <-w.updateCh:
					batch = append(batch, h)
				default:
					break drain
				}
			}
			if len(batch) > 0 {
				w.processBatch(batch)
			}
			return

		case h := <-w.updateCh:
			batch = append(batch, h)
			if len(batch) >= w.maxBatchSize {
				w.processBatch(batch)
				batch = nil
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.processBatch(batch)
				batch = nil
			}

		case <-cleanup.C:
			w.cleanupDebounceMap()
		}
	}
}

func (w *LastUsedWorker) processBatch(hashes []string) {
	seen := make(map[string]struct{}, len(hashes))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var updated int
	for _, h := range hashes {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}

		w.mu.RLock()
		last, touched := w.recentlyUpdated[h]
		w.mu.RUnlock()
		if touched && time.Since(last) < w.debounceInterval {
			continue
		}

		if err := w.keys.TouchByHash(ctx, h); err != nil {
			w.logger.Error("failed to update key last used", "error", err)
			continue
		}

		w.mu.Lock()
		w.recentlyUpdated[h] = time.Now()
		w.mu.Unlock()
		updated++
	}

	if updated > 0 {
		w.logger.Debug("batch last used update", "count", updated)
	}
}

func (w *LastUsedWorker) cleanupDebounceMap() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for h, last := range w.recentlyUpdated {
		if now.Sub(last) > 2*w.debounceInterval {
			delete(w.recentlyUpdated, h)
		}
	}
}
