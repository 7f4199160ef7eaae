//go:build integration

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloo-solutions/askbase/internal/api/handlers"
	"github.com/cloo-solutions/askbase/internal/jobs"
	"github.com/cloo-solutions/askbase/internal/openai"
	"github.com/cloo-solutions/askbase/internal/queue"
	"github.com/cloo-solutions/askbase/internal/repository"
	"github.com/cloo-solutions/askbase/internal/service"
	"github.com/cloo-solutions/askbase/internal/storage"
	"github.com/cloo-solutions/askbase/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeLLM embeds everything onto the same axis so any chunk is a match.
type fakeLLM struct{}

func (fakeLLM) EmbedText(ctx context.Context, text string) (*openai.Embedding, error) {
	return &openai.Embedding{Vector: testutil.UnitVector(openai.DefaultEmbeddingDimensions, 0), Tokens: 3}, nil
}

func (fakeLLM) Complete(ctx context.Context, messages []openai.Message) (*openai.Completion, error) {
	return &openai.Completion{Text: "O expediente é das 9h às 18h.", Tokens: 40}, nil
}

type stack struct {
	t        *testing.T
	ctx      context.Context
	pool     *pgxpool.Pool
	blobs    *storage.S3Client
	auth     *service.AuthService
	embedder *jobs.EmbeddingWorker
	docs     *service.DocumentService
	srv      *httptest.Server
}

func newStack(t *testing.T, dispatcher service.DocumentQueue) *stack {
	t.Helper()
	ctx := context.Background()

	pc := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")

	rc := testutil.NewRustFSContainer(ctx, t)
	blobs, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSCredential,
		SecretAccessKey: testutil.RustFSCredential,
		Bucket:          "askbase-e2e",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, blobs.EnsureBucket(ctx))

	logger := zaptest.NewLogger(t)
	llm := fakeLLM{}

	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	cacheRepo := repository.NewAnswerCacheRepository(pool)
	settingsRepo := repository.NewAISettingsRepository(pool)
	planRepo := repository.NewPlanRepository(pool)
	tenantRepo := repository.NewTenantRepository(pool)
	keyRepo := repository.NewAPIKeyRepository(pool)

	docs, err := service.NewDocumentService(documentRepo, chunkRepo, cacheRepo, repository.NewTxRunner(pool), blobs, dispatcher,
		service.DocumentConfig{
			ChunkSize:          200,
			ChunkOverlap:       20,
			ProcessAsync:       dispatcher != nil,
			GenerateEmbeddings: true,
			MaxUploadBytes:     64 * 1024,
			PreviewLength:      100,
			AllowedMimeTypes:   []string{"text/plain", "text/markdown"},
			AllowedExtensions:  []string{"txt", "md"},
		}, nil)
	require.NoError(t, err)

	metering := service.NewMeteringService(repository.NewUsageRepository(pool), planRepo, repository.NewBillingEventRepository(pool), nil,
		service.BillingConfig{OverageBilled: true, HardLimit: true, OverageCentsPer1K: 10}, logger)
	answers := service.NewAnswerService(cacheRepo, documentRepo, chunkRepo, llm, llm, settingsRepo, metering, 3)
	auth := service.NewAuthService(tenantRepo, planRepo, keyRepo, &service.DefaultUUIDGenerator{})

	router := NewRouter(RouterConfig{
		Logger:          logger,
		AuthValidator:   auth,
		QuotaChecker:    metering,
		MaxBodyBytes:    128 * 1024,
		HealthHandler:   handlers.NewHealthHandler(map[string]handlers.Pinger{"database": pool}),
		DocumentHandler: handlers.NewDocumentHandler(docs),
		AskHandler:      handlers.NewAskHandler(answers),
		UsageHandler:    handlers.NewUsageHandler(metering, answers),
		SettingsHandler: handlers.NewSettingsHandler(service.NewSettingsService(settingsRepo)),
		ChatHandler: handlers.NewChatHandler(service.NewChatService(repository.NewChatRepository(pool), llm, settingsRepo,
			metering, &service.DefaultUUIDGenerator{})),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &stack{
		t:        t,
		ctx:      ctx,
		pool:     pool,
		blobs:    blobs,
		auth:     auth,
		embedder: jobs.NewEmbeddingWorker(repository.NewEmbeddingJobRepository(pool), service.NewEmbeddingService(llm, chunkRepo, cacheRepo), 2, logger),
		docs:     docs,
		srv:      srv,
	}
}

// provision creates a tenant on plan and returns an API key for it.
func (s *stack) provision(name, plan string) string {
	s.t.Helper()
	_, err := s.auth.CreateTenant(s.ctx, name, plan, 1)
	require.NoError(s.t, err)
	tn, err := s.auth.ResolveTenant(s.ctx, name)
	require.NoError(s.t, err)
	key, err := s.auth.CreateAPIKey(s.ctx, tn.ID, "e2e")
	require.NoError(s.t, err)
	return key
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (s *stack) do(method, path, key, contentType string, body io.Reader) (int, envelope) {
	s.t.Helper()
	req, err := http.NewRequestWithContext(s.ctx, method, s.srv.URL+path, body)
	require.NoError(s.t, err)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.srv.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	if len(raw) > 0 {
		require.NoError(s.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

// documentStatus is safe to call from a polling goroutine.
func (s *stack) documentStatus(key, id string) string {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.srv.URL+"/documents/"+id, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+key)
	resp, err := s.srv.Client().Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	var body struct {
		Data handlers.DocumentDetailResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ""
	}
	return body.Data.Status
}

func (s *stack) doJSON(method, path, key, body string) (int, envelope) {
	return s.do(method, path, key, "application/json", strings.NewReader(body))
}

func (s *stack) upload(key, filename, content string) (int, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(s.t, mw.WriteField("tags", "rh,horario"))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "text/markdown")
	part, err := mw.CreatePart(h)
	require.NoError(s.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	status, env := s.do(http.MethodPost, "/documents", key, mw.FormDataContentType(), &buf)
	var doc map[string]any
	if env.Data != nil {
		require.NoError(s.t, json.Unmarshal(env.Data, &doc))
	}
	return status, doc
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

const handbook = "# Horário\n\nO expediente da empresa é das 9h às 18h, de segunda a sexta.\n"

func TestServer_Integration_KnowledgeLifecycle(t *testing.T) {
	s := newStack(t, nil)

	_, err := s.auth.CreatePlan(s.ctx, service.CreatePlanInput{Name: "basic", MonthlyTokenLimit: 100_000})
	require.NoError(t, err)
	key := s.provision("acme", "basic")
	otherKey := s.provision("globex", "basic")

	status, _ := s.do(http.MethodGet, "/documents", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// An empty knowledge base still answers.
	status, env := s.doJSON(http.MethodPost, "/ask", key, `{"question":"Qual o horário?"}`)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, "no_knowledge_base", decode[map[string]any](t, env.Data)["source"])

	status, doc := s.upload(key, "horario.md", handbook)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "processed", doc["status"])
	docID := doc["id"].(string)

	require.NoError(t, s.embedder.ProcessJobs(s.ctx))

	status, env = s.doJSON(http.MethodPost, "/ask", key, `{"question":"Qual o horário?"}`)
	require.Equal(t, http.StatusOK, status, env.Error)
	answer := decode[handlers.AskResponse](t, env.Data)
	assert.Equal(t, "generated", answer.Source)
	assert.Equal(t, "O expediente é das 9h às 18h.", answer.Answer)
	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, docID, answer.Sources[0].DocumentID)

	status, env = s.doJSON(http.MethodPost, "/ask", key, `{"question":"qual o   HORÁRIO?"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cache", decode[handlers.AskResponse](t, env.Data).Source)

	status, env = s.do(http.MethodGet, "/usage/monthly", key, "", nil)
	require.Equal(t, http.StatusOK, status)
	usage := decode[service.MonthlyUsage](t, env.Data)
	assert.Positive(t, usage.TokensUsed)
	assert.Equal(t, int64(100_000), usage.TokensLimit)

	status, env = s.do(http.MethodGet, "/usage/top-questions?limit=5", key, "", nil)
	require.Equal(t, http.StatusOK, status)
	top := decode[[]handlers.TopQuestionResponse](t, env.Data)
	require.NotEmpty(t, top)
	assert.Equal(t, "qual o horário?", top[0].Question)
	assert.Equal(t, 2, top[0].Hits)

	status, env = s.doJSON(http.MethodPut, "/settings/ai", key, `{"tone":"formal","security_rules":["não citar salários"]}`)
	require.Equal(t, http.StatusOK, status, env.Error)
	status, env = s.do(http.MethodGet, "/settings/ai", key, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "formal", decode[handlers.SettingsResponse](t, env.Data).Tone)

	// Tenants never see each other's documents.
	status, _ = s.do(http.MethodGet, "/documents/"+docID, otherKey, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, env = s.do(http.MethodGet, "/documents", otherKey, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[handlers.ListDocumentsResponse](t, env.Data).Items)

	status, env = s.do(http.MethodGet, "/documents/"+docID, key, "", nil)
	require.Equal(t, http.StatusOK, status)
	detail := decode[handlers.DocumentDetailResponse](t, env.Data)
	assert.Positive(t, detail.ChunkCount)
	assert.Contains(t, detail.Preview, "9h às 18h")
	assert.Equal(t, []string{"rh", "horario"}, detail.Tags)

	status, _ = s.do(http.MethodDelete, "/documents/"+docID, key, "", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = s.do(http.MethodGet, "/documents/"+docID, key, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_Integration_HardLimit(t *testing.T) {
	s := newStack(t, nil)

	_, err := s.auth.CreatePlan(s.ctx, service.CreatePlanInput{Name: "tiny", MonthlyTokenLimit: 10})
	require.NoError(t, err)
	key := s.provision("tiny-co", "tiny")

	status, _ := s.upload(key, "horario.md", handbook)
	require.Equal(t, http.StatusCreated, status)
	require.NoError(t, s.embedder.ProcessJobs(s.ctx))

	status, env := s.doJSON(http.MethodPost, "/ask", key, `{"question":"Qual o horário?"}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[handlers.AskResponse](t, env.Data).QuotaExceeded)

	status, _ = s.doJSON(http.MethodPost, "/ask", key, `{"question":"E aos sábados?"}`)
	assert.Equal(t, http.StatusTooManyRequests, status)

	// Reads stay available.
	status, _ = s.do(http.MethodGet, "/usage/monthly", key, "", nil)
	assert.Equal(t, http.StatusOK, status)

	noPlanKey := s.provision("no-plan", "")
	status, _ = s.doJSON(http.MethodPost, "/ask", noPlanKey, `{"question":"oi"}`)
	assert.Equal(t, http.StatusPaymentRequired, status)
}

func TestServer_Integration_Chat(t *testing.T) {
	s := newStack(t, nil)

	_, err := s.auth.CreatePlan(s.ctx, service.CreatePlanInput{Name: "basic", MonthlyTokenLimit: 100_000})
	require.NoError(t, err)
	key := s.provision("acme", "basic")
	otherKey := s.provision("globex", "basic")

	status, env := s.doJSON(http.MethodPost, "/chats", key, `{"title":"Horários"}`)
	require.Equal(t, http.StatusCreated, status, env.Error)
	chatID := decode[handlers.ChatResponse](t, env.Data).ID

	for _, msg := range []string{"Qual o horário?", "E na sexta?"} {
		status, env = s.doJSON(http.MethodPost, "/chats/"+chatID+"/messages", key, `{"message":"`+msg+`"}`)
		require.Equal(t, http.StatusOK, status, env.Error)
		reply := decode[handlers.SendMessageResponse](t, env.Data)
		assert.Equal(t, "assistant", reply.Message.Role)
		assert.Equal(t, 40, reply.TokensUsed)
	}

	status, env = s.do(http.MethodGet, "/chats/"+chatID+"/messages", key, "", nil)
	require.Equal(t, http.StatusOK, status)
	history := decode[[]handlers.ChatMessageResponse](t, env.Data)
	require.Len(t, history, 4)
	assert.Equal(t, "Qual o horário?", history[0].Content)
	assert.Equal(t, "assistant", history[3].Role)

	status, env = s.do(http.MethodGet, "/usage/monthly", key, "", nil)
	require.Equal(t, http.StatusOK, status)
	usage := decode[service.MonthlyUsage](t, env.Data)
	assert.Equal(t, int64(80), usage.TokensUsed)
	assert.Equal(t, int64(2), usage.RequestsCount)

	status, _ = s.doJSON(http.MethodPost, "/chats/"+chatID+"/messages", otherKey, `{"message":"oi"}`)
	assert.Equal(t, http.StatusNotFound, status)
	status, env = s.do(http.MethodGet, "/chats", otherKey, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]handlers.ChatResponse](t, env.Data))
}

func TestServer_Integration_AsyncIngestion(t *testing.T) {
	mr := miniredis.RunT(t)
	q, err := queue.NewRedisQueue(queue.Config{Addr: mr.Addr(), Stream: "askbase:e2e", Block: 50 * time.Millisecond}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	s := newStack(t, jobs.NewQueueDispatcher(q))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		q.Wait()
	})
	require.NoError(t, q.Start(ctx, 2, jobs.NewDocumentWorker(s.docs, zaptest.NewLogger(t)).Handle))

	_, err = s.auth.CreatePlan(s.ctx, service.CreatePlanInput{Name: "basic", MonthlyTokenLimit: 100_000})
	require.NoError(t, err)
	key := s.provision("async-co", "basic")

	status, doc := s.upload(key, "horario.md", handbook)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "processing", doc["status"])
	docID := doc["id"].(string)

	assert.Eventually(t, func() bool {
		return s.documentStatus(key, docID) == "processed"
	}, 10*time.Second, 100*time.Millisecond)

	status, _ = s.doJSON(http.MethodPost, "/documents/"+docID+"/reprocess", key, "")
	assert.Equal(t, http.StatusAccepted, status)
}
