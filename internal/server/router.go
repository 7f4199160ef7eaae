package server

import (
	"net/http"

	"github.com/cloo-solutions/askbase/internal/api/handlers"
	"github.com/cloo-solutions/askbase/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes int64 = 5 * 1024 * 1024

type RouterConfig struct {
	Logger          *zap.Logger
	AuthValidator   middleware.AuthValidator
	QuotaChecker    middleware.QuotaChecker
	MaxBodyBytes    int64
	HealthHandler   *handlers.HealthHandler
	DocumentHandler *handlers.DocumentHandler
	AskHandler      *handlers.AskHandler
	UsageHandler    *handlers.UsageHandler
	SettingsHandler *handlers.SettingsHandler
	ChatHandler     *handlers.ChatHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.MaxBodyBytes(maxBody))

	r.Get("/health", cfg.HealthHandler.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Patch("/{id}", cfg.DocumentHandler.Update)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
			r.Post("/{id}/reprocess", cfg.DocumentHandler.Reprocess)
		})

		quota := middleware.QuotaGate(cfg.QuotaChecker)
		r.With(quota).Post("/ask", cfg.AskHandler.Ask)

		r.Route("/chats", func(r chi.Router) {
			r.Post("/", cfg.ChatHandler.Create)
			r.Get("/", cfg.ChatHandler.List)
			r.Get("/{id}/messages", cfg.ChatHandler.Messages)
			r.With(quota).Post("/{id}/messages", cfg.ChatHandler.Send)
		})

		r.Route("/usage", func(r chi.Router) {
			r.Get("/monthly", cfg.UsageHandler.Monthly)
			r.Get("/top-questions", cfg.UsageHandler.TopQuestions)
		})

		r.Get("/settings/ai", cfg.SettingsHandler.Get)
		r.Put("/settings/ai", cfg.SettingsHandler.Update)
	})

	return r
}
