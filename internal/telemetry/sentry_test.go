package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInit_WithoutDSN(t *testing.T) {
	flush, err := Init(Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, flush)
	flush()
}

func TestInit_InvalidDSN(t *testing.T) {
	flush, err := Init(Config{DSN: "not a dsn"}, nil)
	assert.Error(t, err)
	require.NotNil(t, flush)
	flush()
}

func TestSampler(t *testing.T) {
	s := sampler(0.25)

	assert.Equal(t, 0.25, s(sentry.SamplingContext{Span: &sentry.Span{Name: "POST /ask"}}))
	assert.Equal(t, 0.0, s(sentry.SamplingContext{Span: &sentry.Span{Name: "GET /health"}}))

	child := &sentry.Span{Name: "db", ParentSpanID: sentry.SpanID{1}, Sampled: sentry.SampledTrue}
	assert.Equal(t, 1.0, s(sentry.SamplingContext{Span: child}))
	child.Sampled = sentry.SampledFalse
	assert.Equal(t, 0.0, s(sentry.SamplingContext{Span: child}))
}

func TestStartSpan_NestsUnderParent(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "AnswerService.Ask", SpanAttributes{TenantID: "tenant-1", Operation: "ask"})
	defer root.End()

	_, child := StartSpan(ctx, "DocumentService.Get", SpanAttributes{DocumentID: "doc-1"})
	defer child.End()

	assert.Equal(t, root.inner.SpanID, child.inner.ParentSpanID)
	assert.Equal(t, "tenant-1", root.inner.Tags["tenant_id"])
	assert.Equal(t, "doc-1", child.inner.Tags["document_id"])
}

func TestSpan_SetError(t *testing.T) {
	_, span := StartSpan(context.Background(), "op", SpanAttributes{})
	span.SetError(errors.New("boom"))
	assert.Equal(t, sentry.SpanStatusInternalError, span.inner.Status)
	span.End()

	var nilSpan *Span
	nilSpan.SetError(errors.New("ignored"))
	nilSpan.End()
}
