package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// DefaultEmbeddingModel must match the dimensionality of document_chunks.embedding
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the vector length stored per chunk
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel answers questions
	DefaultChatModel = "gpt-4.1"
	// DefaultTemperature keeps answers close to the retrieved context
	DefaultTemperature float32 = 0.2
)

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoMessages is returned when a completion is requested without messages
	ErrNoMessages = errors.New("at least one message is required")
	// ErrEmptyResponse is returned when the provider answers with no data
	ErrEmptyResponse = errors.New("provider returned no data")
)

// Embedding is a vector and the tokens the provider billed for it.
// Tokens is zero when the provider did not report usage.
type Embedding struct {
	Vector []float32
	Tokens int
}

// Message is one chat turn
type Message struct {
	Role    string
	Content string
}

// Completion is a chat answer. Tokens is zero when usage was not reported.
type Completion struct {
	Text   string
	Tokens int
}

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, int, error)
}

// ChatAPI defines the interface for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, messages []Message) (*Completion, error)
}

// Client wraps the OpenAI API client
type Client struct {
	embeddings EmbeddingAPI
	chat       ChatAPI
	dimensions int
	limiter    *rate.Limiter
}

type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	dimensions     int
	chatModel      string
	temperature    float32
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	return &OpenAIAdapter{
		client:         openai.NewClientWithConfig(clientCfg),
		embeddingModel: model,
		dimensions:     cfg.EmbeddingDimensions,
		chatModel:      chatModel,
		temperature:    cfg.Temperature,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, int, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: a.embeddingModel,
	}
	// text-embedding-3 models can be shortened; ada-002 rejects the field.
	if a.embeddingModel != openai.AdaEmbeddingV2 {
		req.Dimensions = a.dimensions
	}

	resp, err := a.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	if len(resp.Data) != len(texts) {
		return nil, 0, ErrEmptyResponse
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, 0, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, resp.Usage.TotalTokens, nil
}

// CreateChatCompletion calls the OpenAI chat completion API
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, messages []Message) (*Completion, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.chatModel,
		Messages:    chatMessages,
		Temperature: a.temperature,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	return &Completion{
		Text:   resp.Choices[0].Message.Content,
		Tokens: resp.Usage.TotalTokens,
	}, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	Temperature         float32
	// RequestsPerSecond throttles every provider call. Zero disables it.
	RequestsPerSecond float64
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey, Temperature: DefaultTemperature})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	if cfg.EmbeddingDimensions <= 0 {
		cfg.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	adapter := NewOpenAIAdapter(cfg)
	client := &Client{
		embeddings: adapter,
		chat:       adapter,
		dimensions: cfg.EmbeddingDimensions,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		client.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return client
}

// Dimensions returns the vector length every embedding is checked against
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Embed embeds texts in one provider call, preserving order. Per-item token
// counts are only known for single-text calls.
func (c *Client) Embed(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	vectors, tokens, err := c.embeddings.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	out := make([]Embedding, len(vectors))
	for i, v := range vectors {
		if len(v) != c.dimensions {
			return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(v), c.dimensions)
		}
		out[i] = Embedding{Vector: v}
	}
	if len(out) == 1 {
		out[0].Tokens = tokens
	}

	return out, nil
}

// EmbedText embeds a single text
func (c *Client) EmbedText(ctx context.Context, text string) (*Embedding, error) {
	out, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Complete runs a chat completion over messages
func (c *Client) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	completion, err := c.chat.CreateChatCompletion(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion: %w", err)
	}
	return completion, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
