package jobs

import (
	"context"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/queue"
	"github.com/cloo-solutions/askbase/internal/service"
	"github.com/cloo-solutions/askbase/internal/tenant"
	"go.uber.org/zap"
)

// DocumentProcessor turns a stored upload into chunks for the tenant in scope
type DocumentProcessor interface {
	Process(ctx context.Context, documentID string) error
}

// DocumentWorker consumes document tasks from the queue
type DocumentWorker struct {
	processor DocumentProcessor
	logger    *zap.Logger
}

// NewDocumentWorker creates a new DocumentWorker instance
func NewDocumentWorker(processor DocumentProcessor, logger *zap.Logger) *DocumentWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentWorker{processor: processor, logger: logger}
}

// Handle processes one task inside the task's tenant scope. Only errors worth
// retrying are returned; the document already records permanent failures.
func (w *DocumentWorker) Handle(ctx context.Context, task queue.Task) error {
	ctx = tenant.WithTenant(ctx, task.TenantID)
	log := w.logger.With(
		zap.String("tenant_id", task.TenantID),
		zap.String("document_id", task.DocumentID),
		zap.Int("attempt", task.Attempt),
	)

	err := w.processor.Process(ctx, task.DocumentID)
	if err == nil {
		log.Info("document processed")
		return nil
	}

	switch domain.CodeOf(err) {
	case domain.ErrCodeNotFound, domain.ErrCodeValidation, domain.ErrCodeInvalidOperation, domain.ErrCodeTenantNotSet:
		log.Warn("document processing failed permanently", zap.Error(err))
		return nil
	}
	return err
}

// TaskQueue is the producer side of the document queue
type TaskQueue interface {
	Enqueue(ctx context.Context, task queue.Task) error
}

// QueueDispatcher lets DocumentService hand documents to the Redis queue
type QueueDispatcher struct {
	queue TaskQueue
}

// NewQueueDispatcher wraps a task queue
func NewQueueDispatcher(q TaskQueue) *QueueDispatcher {
	return &QueueDispatcher{queue: q}
}

// Enqueue implements service.DocumentQueue
func (d *QueueDispatcher) Enqueue(ctx context.Context, task service.DocumentTask) error {
	return d.queue.Enqueue(ctx, queue.Task{TenantID: task.TenantID, DocumentID: task.DocumentID})
}

var _ service.DocumentQueue = (*QueueDispatcher)(nil)
