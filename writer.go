package rewind

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type (
	// writer saves encoded snapshots in the background. Queued requests are
	// coalesced so only the newest pending snapshot reaches the Storage
	writer struct {
		storage Storage
		queue   chan writeRequest
		logger  *zap.Logger
		metrics *Metrics
		config  PersistConfig
		wg      sync.WaitGroup
	}

	writeRequest struct {
		key      string
		value    string
		sequence int64
	}
)

func newWriter(
	storage Storage, cfg PersistConfig, logger *zap.Logger, m *Metrics,
) *writer {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultWriteQueueSize
	}

	w := &writer{
		storage: storage,
		config:  cfg,
		logger:  logger,
		metrics: m,
		queue:   make(chan writeRequest, size),
	}

	w.wg.Add(1)
	go w.run()
	return w
}

func (w *writer) run() {
	defer w.wg.Done()

	for req := range w.queue {
		w.save(w.latest(req))
	}
}

func (w *writer) latest(req writeRequest) writeRequest {
	for {
		select {
		case next, ok := <-w.queue:
			if !ok {
				return req
			}
			req = next
		default:
			return req
		}
	}
}

func (w *writer) save(req writeRequest) {
	ctx := context.Background()
	if w.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.WriteTimeout)
		defer cancel()
	}

	start := time.Now()
	var err error
	if seq, ok := w.storage.(SequencedStorage); ok {
		err = seq.SetSequenced(ctx, req.key, req.value, req.sequence)
	} else {
		err = w.storage.Set(ctx, req.key, req.value)
	}
	duration := time.Since(start)

	if err != nil {
		w.metrics.persistFailure(stageWrite)
		w.logger.Warn("Failed to write snapshot",
			zap.String("key", req.key),
			zap.Int64("sequence", req.sequence),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	w.logger.Debug("Snapshot written",
		zap.String("key", req.key),
		zap.Int64("sequence", req.sequence),
		zap.Duration("duration", duration),
	)
}

// enqueue never blocks. When the queue is full, the oldest pending request
// is discarded in favor of req, since req supersedes it anyway
func (w *writer) enqueue(req writeRequest) bool {
	for range 2 {
		select {
		case w.queue <- req:
			return true
		default:
		}
		select {
		case <-w.queue:
		default:
		}
	}

	w.metrics.persistFailure(stageQueue)
	w.logger.Warn("Snapshot queue full, dropping write",
		zap.String("key", req.key),
		zap.Int64("sequence", req.sequence),
		zap.Int("queue_size", len(w.queue)),
	)
	return false
}

// stop closes the queue and waits for pending writes to drain. Callers must
// guarantee that enqueue is not called concurrently or afterward
func (w *writer) stop() {
	close(w.queue)
	w.wg.Wait()
}
