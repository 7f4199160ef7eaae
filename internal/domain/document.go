package domain

import (
	"fmt"
	"time"
)

// DocumentStatus tracks a document through the ingestion pipeline
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusChunked    DocumentStatus = "chunked"
	DocumentStatusProcessed  DocumentStatus = "processed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// MaxTagLength is the maximum length of a single document tag, in runes.
const MaxTagLength = 50

// Document is an uploaded text file owned by a tenant.
type Document struct {
	ID               string
	TenantID         string
	OwnerID          string
	Title            string
	OriginalFilename string
	Path             string
	MimeType         string
	SizeBytes        int64
	ContentText      *string
	Checksum         string
	Status           DocumentStatus
	ErrorMessage     string
	Tokens           int
	Tags             []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.TenantID == "" {
		return fmt.Errorf("document TenantID is required")
	}

	if d.Title == "" {
		return fmt.Errorf("document Title is required")
	}

	if !IsValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	for _, tag := range d.Tags {
		if len([]rune(tag)) > MaxTagLength {
			return fmt.Errorf("document tag exceeds %d characters: %s", MaxTagLength, tag)
		}
	}

	return nil
}

// IsValidDocumentStatus checks if a DocumentStatus is valid
func IsValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusProcessing, DocumentStatusChunked,
		DocumentStatusProcessed, DocumentStatusFailed:
		return true
	}
	return false
}

// IsBusy reports whether the document is mid-pipeline.
func (d *Document) IsBusy() bool {
	return d.Status == DocumentStatusProcessing
}

// StoragePrefix is the directory that holds every stored file of a document.
func StoragePrefix(tenantID, documentID string) string {
	return fmt.Sprintf("knowledge/tenant_%s/%s/", tenantID, documentID)
}

// StoragePath is the object key of a document's original upload.
func StoragePath(tenantID, documentID, ext string) string {
	if ext == "" {
		ext = "txt"
	}
	return StoragePrefix(tenantID, documentID) + "original." + ext
}
