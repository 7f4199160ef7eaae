package domain

import "time"

type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingJobStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingJobStatusCompleted  EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed     EmbeddingJobStatus = "failed"
)

func (s EmbeddingJobStatus) Valid() bool {
	switch s {
	case EmbeddingJobStatusPending, EmbeddingJobStatusProcessing,
		EmbeddingJobStatusCompleted, EmbeddingJobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no worker will pick the job up again.
func (s EmbeddingJobStatus) Terminal() bool {
	return s == EmbeddingJobStatusCompleted || s == EmbeddingJobStatusFailed
}

// EmbeddingJob asks a worker to embed one chunk. Jobs are created in the
// same transaction as their chunks and die with them.
type EmbeddingJob struct {
	ID          string
	TenantID    string
	ChunkID     string
	Status      EmbeddingJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

func NewEmbeddingJob(id, tenantID, chunkID string, createdAt time.Time) *EmbeddingJob {
	return &EmbeddingJob{
		ID:        id,
		TenantID:  tenantID,
		ChunkID:   chunkID,
		Status:    EmbeddingJobStatusPending,
		CreatedAt: createdAt,
	}
}

// AfterFailure returns the status a job moves to after a failed attempt
// and the number of that attempt. Jobs go back to pending until they have
// been tried maxAttempts times.
func (j *EmbeddingJob) AfterFailure(maxAttempts int) (EmbeddingJobStatus, int) {
	attempt := int(j.Retries) + 1
	if attempt >= maxAttempts {
		return EmbeddingJobStatusFailed, attempt
	}
	return EmbeddingJobStatusPending, attempt
}
