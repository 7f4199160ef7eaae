package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cloo-solutions/askbase/internal/api"
	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/service"
)

type SettingsService interface {
	Get(ctx context.Context) (*domain.AISettings, error)
	Update(ctx context.Context, input service.UpdateSettingsInput) (*domain.AISettings, error)
}

type SettingsHandler struct {
	svc SettingsService
}

func NewSettingsHandler(svc SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

type SettingsRequest struct {
	Tone          *string   `json:"tone"`
	Language      *string   `json:"language"`
	DetailLevel   *string   `json:"detail_level"`
	SecurityRules *[]string `json:"security_rules"`
}

type SettingsResponse struct {
	Tone          string   `json:"tone"`
	Language      string   `json:"language"`
	DetailLevel   string   `json:"detail_level"`
	SecurityRules []string `json:"security_rules"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}

func settingsToResponse(s *domain.AISettings) SettingsResponse {
	rules := s.SecurityRules
	if rules == nil {
		rules = []string{}
	}
	resp := SettingsResponse{
		Tone:          s.Tone,
		Language:      s.Language,
		DetailLevel:   s.DetailLevel,
		SecurityRules: rules,
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Get(r.Context())
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, settingsToResponse(settings))
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := h.svc.Update(r.Context(), service.UpdateSettingsInput{
		Tone:          req.Tone,
		Language:      req.Language,
		DetailLevel:   req.DetailLevel,
		SecurityRules: req.SecurityRules,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, settingsToResponse(settings))
}
