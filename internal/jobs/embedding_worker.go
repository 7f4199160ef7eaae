package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/tenant"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxRetries is the number of attempts before a job is marked failed
	MaxRetries = 3

	defaultBatchSize = 20
)

// errJobGone marks a job row that disappeared with its chunk
var errJobGone = errors.New("embedding job no longer exists")

// EmbeddingJobRepository defines the interface for embedding job persistence
type EmbeddingJobRepository interface {
	// GetPendingJobs claims up to limit pending jobs and marks them processing
	GetPendingJobs(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, jobID string) error
}

// ChunkEmbedder embeds one chunk of the tenant in scope
type ChunkEmbedder interface {
	EmbedChunk(ctx context.Context, chunkID string) error
}

// EmbeddingWorker drains the embedding job table. Each job is an independent
// task: one failing job never cancels its siblings.
type EmbeddingWorker struct {
	repo        EmbeddingJobRepository
	embedder    ChunkEmbedder
	logger      *zap.Logger
	concurrency int
	batchSize   int
}

// NewEmbeddingWorker creates a new EmbeddingWorker instance
func NewEmbeddingWorker(repo EmbeddingJobRepository, embedder ChunkEmbedder, concurrency int, logger *zap.Logger) *EmbeddingWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := defaultBatchSize
	if concurrency > batch {
		batch = concurrency
	}
	return &EmbeddingWorker{
		repo:        repo,
		embedder:    embedder,
		logger:      logger,
		concurrency: concurrency,
		batchSize:   batch,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	w.logger.Debug("processing embedding jobs", zap.Int("count", len(jobs)))

	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error("embedding job bookkeeping failed",
					zap.String("job_id", job.ID),
					zap.String("tenant_id", job.TenantID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *EmbeddingWorker) processJob(ctx context.Context, job *domain.EmbeddingJob) error {
	ctx = tenant.WithTenant(ctx, job.TenantID)

	if err := w.embedder.EmbedChunk(ctx, job.ChunkID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""); err != nil {
		return ignoreGone(fmt.Errorf("mark job completed: %w", err))
	}
	return nil
}

func (w *EmbeddingWorker) handleJobFailure(ctx context.Context, job *domain.EmbeddingJob, jobErr error) error {
	log := w.logger.With(
		zap.String("job_id", job.ID),
		zap.String("tenant_id", job.TenantID),
		zap.String("chunk_id", job.ChunkID),
	)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return ignoreGone(fmt.Errorf("increment retries: %w", err))
	}

	next, attempt := job.AfterFailure(MaxRetries)
	if next == domain.EmbeddingJobStatusFailed {
		log.Error("embedding job failed permanently", zap.Int("attempts", attempt), zap.Error(jobErr))
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		return ignoreGone(w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, errMsg))
	}

	log.Warn("embedding job failed, will retry", zap.Int("attempt", attempt), zap.Int("max_retries", MaxRetries), zap.Error(jobErr))
	errMsg := fmt.Sprintf("retry %d: %v", attempt, jobErr)
	return ignoreGone(w.repo.UpdateJobStatus(ctx, job.ID, next, errMsg))
}

// ignoreGone drops not-found errors: the job row is removed with its chunk when
// a document is deleted or reprocessed.
func ignoreGone(err error) error {
	if err == nil || domain.CodeOf(err) == domain.ErrCodeNotFound {
		return nil
	}
	return err
}
