// Package jobs runs the background processors: the embedding job poller and
// the document queue consumer.
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobProcessor defines the interface for processing jobs
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor on a fixed interval
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	logger       *zap.Logger
	stopChan     chan struct{}
	doneChan     chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new Worker instance
func NewWorker(processor JobProcessor, pollInterval time.Duration, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		logger:       logger,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop until ctx is cancelled or Stop is called
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	w.logger.Info("worker started", zap.Duration("poll_interval", w.pollInterval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped: context cancelled")
			return
		case <-w.stopChan:
			w.logger.Info("worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				w.logger.Error("processing jobs failed", zap.Error(err))
			}
		}
	}
}

// Stop signals the loop to exit and waits for the current batch to finish.
// Only call Stop after Start has been launched.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
}
