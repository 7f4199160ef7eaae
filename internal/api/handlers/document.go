package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/askbase/internal/api"
	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/service"
	"github.com/go-chi/chi/v5"
)

const multipartMemory = 8 << 20

type DocumentService interface {
	Upload(ctx context.Context, input service.UploadInput) (*domain.Document, error)
	Get(ctx context.Context, id string) (*service.DocumentDetail, error)
	List(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error)
	Update(ctx context.Context, input service.UpdateDocumentInput) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
	Reprocess(ctx context.Context, id string) (*domain.Document, error)
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type DocumentResponse struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	OriginalFilename string   `json:"original_filename"`
	MimeType         string   `json:"mime_type"`
	SizeBytes        int64    `json:"size_bytes"`
	Status           string   `json:"status"`
	ErrorMessage     string   `json:"error_message,omitempty"`
	Tokens           int      `json:"tokens"`
	Tags             []string `json:"tags"`
	OwnerID          string   `json:"owner_id,omitempty"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

type DocumentDetailResponse struct {
	DocumentResponse
	Preview    string `json:"preview"`
	ChunkCount int    `json:"chunk_count"`
}

type ListDocumentsResponse struct {
	Items      []*DocumentResponse `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

type UpdateDocumentRequest struct {
	Title *string   `json:"title"`
	Tags  *[]string `json:"tags"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return &DocumentResponse{
		ID:               d.ID,
		Title:            d.Title,
		OriginalFilename: d.OriginalFilename,
		MimeType:         d.MimeType,
		SizeBytes:        d.SizeBytes,
		Status:           string(d.Status),
		ErrorMessage:     d.ErrorMessage,
		Tokens:           d.Tokens,
		Tags:             tags,
		OwnerID:          d.OwnerID,
		CreatedAt:        d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// bodyLimitReached reports whether a failed body read was cut by
// http.MaxBytesReader. mime/multipart loses the error type when the cut falls
// inside a part header, but the limited reader keeps failing with it.
func bodyLimitReached(r *http.Request, err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	_, err = r.Body.Read(make([]byte, 1))
	return errors.As(err, &maxErr)
}

// Upload accepts multipart/form-data with a "file" part plus optional
// "title", "tags" (comma separated or repeated) and "owner_id" fields.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if bodyLimitReached(r, err) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	input := service.UploadInput{
		Title:    r.FormValue("title"),
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		OwnerID:  r.FormValue("owner_id"),
		Tags:     parseTags(r.MultipartForm.Value["tags"]),
		Content:  content,
	}

	doc, err := h.svc.Upload(r.Context(), input)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	status := http.StatusCreated
	if doc.IsBusy() {
		status = http.StatusAccepted
	}
	api.Success(w, status, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	out, err := h.svc.List(r.Context(), service.ListDocumentsInput{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	items := make([]*DocumentResponse, len(out.Items))
	for i, d := range out.Items {
		items[i] = documentToResponse(d)
	}
	api.Success(w, http.StatusOK, ListDocumentsResponse{
		Items:      items,
		NextCursor: out.Cursor,
		HasMore:    out.HasMore,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, DocumentDetailResponse{
		DocumentResponse: *documentToResponse(detail.Document),
		Preview:          detail.Preview,
		ChunkCount:       detail.ChunkCount,
	})
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == nil && req.Tags == nil {
		api.Error(w, http.StatusBadRequest, "nothing to update")
		return
	}

	doc, err := h.svc.Update(r.Context(), service.UpdateDocumentInput{
		ID:    chi.URLParam(r, "id"),
		Title: req.Title,
		Tags:  req.Tags,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Reprocess(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	status := http.StatusOK
	if doc.IsBusy() {
		status = http.StatusAccepted
	}
	api.Success(w, status, documentToResponse(doc))
}

func parseTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}
