package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/pagination"
	"github.com/cloo-solutions/askbase/internal/storage"
	"github.com/cloo-solutions/askbase/internal/telemetry"
	"github.com/cloo-solutions/askbase/internal/tenant"
	"github.com/cloo-solutions/askbase/internal/textproc"
)

const (
	defaultListLimit = 15
	maxListLimit     = 100
)

// extensionMimeTypes covers clients that send no useful content type.
var extensionMimeTypes = map[string]string{
	"txt":  "text/plain",
	"md":   "text/markdown",
	"csv":  "text/csv",
	"json": "application/json",
}

// DocumentConfig carries the ingestion settings
type DocumentConfig struct {
	ChunkSize          int
	ChunkOverlap       int
	ProcessAsync       bool
	GenerateEmbeddings bool
	MaxUploadBytes     int64
	PreviewLength      int
	AllowedMimeTypes   []string
	AllowedExtensions  []string
}

// DocumentService handles upload, processing and lifecycle of documents
type DocumentService struct {
	docRepo   DocumentRepositoryInterface
	chunkRepo ChunkRepositoryInterface
	cache     AnswerCacheRepositoryInterface
	txRunner  TxRunner
	blobs     BlobStore
	queue     DocumentQueue
	chunker   *textproc.Chunker
	cfg       DocumentConfig
	uuidGen   UUIDGenerator
}

// NewDocumentService creates a DocumentService. queue may be nil when
// documents are processed inline.
func NewDocumentService(
	docRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	cache AnswerCacheRepositoryInterface,
	txRunner TxRunner,
	blobs BlobStore,
	queue DocumentQueue,
	cfg DocumentConfig,
	uuidGen UUIDGenerator,
) (*DocumentService, error) {
	chunker, err := textproc.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if cfg.ProcessAsync && queue == nil {
		return nil, domain.ErrQueueUnavailable
	}
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &DocumentService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		cache:     cache,
		txRunner:  txRunner,
		blobs:     blobs,
		queue:     queue,
		chunker:   chunker,
		cfg:       cfg,
		uuidGen:   uuidGen,
	}, nil
}

// UploadInput represents an uploaded file
type UploadInput struct {
	Title    string
	Filename string
	MimeType string
	OwnerID  string
	Tags     []string
	Content  []byte
}

// UpdateDocumentInput carries the editable fields. Nil fields are left as is.
type UpdateDocumentInput struct {
	ID    string
	Title *string
	Tags  *[]string
}

type ListDocumentsInput struct {
	Cursor string
	Limit  int
}

type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

// DocumentDetail is a document with a preview of its text
type DocumentDetail struct {
	Document   *domain.Document
	Preview    string
	ChunkCount int
}

// Upload validates and stores a file, then processes it inline or hands it
// to the queue.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*domain.Document, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Upload", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "upload",
	})
	defer span.End()

	ext, mimeType, err := s.checkFile(input)
	if err != nil {
		return nil, err
	}

	tags, err := normalizeTags(input.Tags)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		base := filepath.Base(input.Filename)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	now := utcNow()
	doc := &domain.Document{
		ID:               s.uuidGen.NewString(),
		TenantID:         tenantID,
		OwnerID:          input.OwnerID,
		Title:            title,
		OriginalFilename: input.Filename,
		MimeType:         mimeType,
		SizeBytes:        int64(len(input.Content)),
		Status:           domain.DocumentStatusUploaded,
		Tags:             tags,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	doc.Path = domain.StoragePath(tenantID, doc.ID, ext)

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.blobs.Put(ctx, doc.Path, input.Content, mimeType); err != nil {
		s.fail(ctx, doc, err)
		return nil, domain.ErrStorageOperation.WithCause(err)
	}

	return s.dispatch(ctx, doc)
}

// Process turns the stored file into chunks and queues one embedding job
// per chunk. On failure the document is marked failed.
func (s *DocumentService) Process(ctx context.Context, documentID string) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}

	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Process", telemetry.SpanAttributes{
		TenantID:   tenantID,
		DocumentID: documentID,
		Operation:  "process",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, tenantID, documentID)
	if err != nil {
		return err
	}

	if doc.Status != domain.DocumentStatusProcessing {
		if err := s.docRepo.UpdateStatus(ctx, tenantID, doc.ID, domain.DocumentStatusProcessing, ""); err != nil {
			return err
		}
		doc.Status = domain.DocumentStatusProcessing
	}

	if err := s.process(ctx, doc); err != nil {
		span.SetError(err)
		s.fail(ctx, doc, err)
		return err
	}

	if err := s.docRepo.UpdateStatus(ctx, tenantID, doc.ID, domain.DocumentStatusProcessed, ""); err != nil {
		return err
	}

	// The tenant now has something to retrieve from.
	dropFallbackAnswers(ctx, s.cache, tenantID)

	return nil
}

func (s *DocumentService) process(ctx context.Context, doc *domain.Document) error {
	raw, err := s.blobs.Get(ctx, doc.Path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return domain.ErrStoredFileMissing
		}
		return domain.ErrStorageOperation.WithCause(err)
	}

	text, err := textproc.Normalize(raw)
	if err != nil {
		return err
	}
	if text == "" {
		return domain.ErrNoContentToChunk
	}

	now := utcNow()
	var chunks []domain.Chunk
	tokens := 0
	for i, content := range s.chunker.Chunks(text) {
		estimated := textproc.EstimateChunkTokens(content)
		tokens += estimated
		chunks = append(chunks, domain.Chunk{
			ID:              s.uuidGen.NewString(),
			TenantID:        doc.TenantID,
			DocumentID:      doc.ID,
			ChunkIndex:      i,
			Content:         content,
			ContentHash:     textproc.ContentHash(content),
			TokensEstimated: estimated,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	doc.ContentText = &text
	doc.Checksum = textproc.ContentHash(text)
	doc.Tokens = tokens
	doc.UpdatedAt = now

	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().ReplaceChunks(ctx, doc.TenantID, doc.ID, chunks); err != nil {
			return fmt.Errorf("failed to replace chunks: %w", err)
		}
		if err := repos.Documents().MarkChunked(ctx, doc); err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
		if !s.cfg.GenerateEmbeddings {
			return nil
		}
		for _, c := range chunks {
			job := domain.NewEmbeddingJob(s.uuidGen.NewString(), doc.TenantID, c.ID, now)
			if err := repos.EmbeddingJobs().Create(ctx, job); err != nil {
				return fmt.Errorf("failed to queue embedding job: %w", err)
			}
		}
		return nil
	})
}

// Reprocess regenerates every chunk of an existing document.
func (s *DocumentService) Reprocess(ctx context.Context, id string) (*domain.Document, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Reprocess", telemetry.SpanAttributes{
		TenantID:   tenantID,
		DocumentID: id,
		Operation:  "reprocess",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if doc.IsBusy() {
		return nil, domain.ErrDocumentBusy
	}

	return s.dispatch(ctx, doc)
}

// dispatch enqueues the document in async mode and processes it otherwise.
// Queued documents are returned as of the enqueue, so callers see
// processing even when a worker finishes first.
func (s *DocumentService) dispatch(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	if !s.cfg.ProcessAsync {
		if err := s.Process(ctx, doc.ID); err != nil {
			return nil, err
		}
		return s.docRepo.GetByID(ctx, doc.TenantID, doc.ID)
	}

	if err := s.docRepo.UpdateStatus(ctx, doc.TenantID, doc.ID, domain.DocumentStatusProcessing, ""); err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatusProcessing
	doc.ErrorMessage = ""

	if err := s.queue.Enqueue(ctx, DocumentTask{TenantID: doc.TenantID, DocumentID: doc.ID}); err != nil {
		s.fail(ctx, doc, err)
		return nil, fmt.Errorf("failed to enqueue document: %w", err)
	}
	return doc, nil
}

func (s *DocumentService) fail(ctx context.Context, doc *domain.Document, cause error) {
	ctx = context.WithoutCancel(ctx)
	_ = s.docRepo.UpdateStatus(ctx, doc.TenantID, doc.ID, domain.DocumentStatusFailed, cause.Error())
}

// Get returns the document with a preview of its normalized text.
func (s *DocumentService) Get(ctx context.Context, id string) (*DocumentDetail, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Get", telemetry.SpanAttributes{
		TenantID:   tenantID,
		DocumentID: id,
		Operation:  "get",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	count, err := s.chunkRepo.CountByDocument(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	detail := &DocumentDetail{Document: doc, ChunkCount: count}
	if doc.ContentText != nil {
		detail.Preview = textproc.Preview(*doc.ContentText, s.cfg.PreviewLength)
	}
	return detail, nil
}

// List returns the tenant's documents, newest first.
func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "DocumentService.List", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "list",
	})
	defer span.End()

	limit := pagination.Limit(input.Limit, defaultListLimit, maxListLimit)

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	page, err := s.docRepo.ListByTenantWithCursor(ctx, tenantID, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListDocumentsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// Update edits the title and tags of a document
func (s *DocumentService) Update(ctx context.Context, input UpdateDocumentInput) (*domain.Document, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Update", telemetry.SpanAttributes{
		TenantID:   tenantID,
		DocumentID: input.ID,
		Operation:  "update",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, tenantID, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "title cannot be empty")
		}
		doc.Title = title
	}
	if input.Tags != nil {
		tags, err := normalizeTags(*input.Tags)
		if err != nil {
			return nil, err
		}
		doc.Tags = tags
	}
	doc.UpdatedAt = utcNow()

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the document, its chunks and its stored files.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}

	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		TenantID:   tenantID,
		DocumentID: id,
		Operation:  "delete",
	})
	defer span.End()

	if err := s.docRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	if err := s.blobs.DeleteDirectory(ctx, domain.StoragePrefix(tenantID, id)); err != nil {
		return domain.ErrStorageOperation.WithCause(err)
	}
	return nil
}

// checkFile validates the upload and returns its extension and media type.
func (s *DocumentService) checkFile(input UploadInput) (string, string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Filename), "."))
	if ext == "" || !slices.Contains(s.cfg.AllowedExtensions, ext) {
		return "", "", domain.ErrUnsupportedFileType
	}

	mimeType := input.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = extensionMimeTypes[ext]
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil || !slices.Contains(s.cfg.AllowedMimeTypes, mediaType) {
		return "", "", domain.ErrUnsupportedFileType
	}

	if len(input.Content) == 0 {
		return "", "", domain.ErrEmptyFile
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(input.Content)) > s.cfg.MaxUploadBytes {
		return "", "", domain.ErrFileTooLarge
	}

	return ext, mediaType, nil
}

// normalizeTags trims, drops empties and removes case-insensitive duplicates.
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if len([]rune(tag)) > domain.MaxTagLength {
			return nil, domain.NewDomainError(domain.ErrCodeValidation,
				fmt.Sprintf("tag exceeds %d characters", domain.MaxTagLength))
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out, nil
}
