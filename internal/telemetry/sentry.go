// Package telemetry wraps sentry-go tracing and error capture.
package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

const serverName = "askbase"

// untracedRoutes never produce transactions.
var untracedRoutes = map[string]bool{
	"GET /health": true,
}

type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init configures the global Sentry client and returns a flush func to call
// on shutdown. An empty DSN leaves Sentry disabled.
func Init(cfg Config, logger *zap.Logger) (func(), error) {
	noop := func() {}
	if cfg.DSN == "" {
		return noop, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    sampler(cfg.TracesSampleRate),
		Debug:            cfg.Debug,
		ServerName:       serverName,
	})
	if err != nil {
		return noop, err
	}

	logger.Info("sentry initialized",
		zap.String("environment", cfg.Environment),
		zap.Float64("traces_sample_rate", cfg.TracesSampleRate),
	)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// sampler drops health probes and keeps children consistent with their parent.
func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if ctx.Span == nil {
			return rate
		}
		if untracedRoutes[ctx.Span.Name] {
			return 0
		}
		if ctx.Span.ParentSpanID != (sentry.SpanID{}) {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes are the tags every service span carries when set.
type SpanAttributes struct {
	TenantID   string
	DocumentID string
	Operation  string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	if a.TenantID != "" {
		span.SetTag("tenant_id", a.TenantID)
	}
	if a.DocumentID != "" {
		span.SetTag("document_id", a.DocumentID)
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
}

// Span is a finishable unit of work. The zero value is inert.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s != nil && s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports err on the span's hub.
func (s *Span) SetError(err error) {
	if s == nil || s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// StartSpan opens a child of the span in ctx, or a transaction when ctx
// carries none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

// CaptureError reports err on the hub in ctx, falling back to the global hub.
func CaptureError(ctx context.Context, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}
