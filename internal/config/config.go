// Package config loads askbase settings from ASKBASE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "ASKBASE"

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"askbase-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey              string  `envconfig:"OPENAI_API_KEY"`
	OpenAIEmbeddingModel      string  `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	OpenAIEmbeddingDimensions int     `envconfig:"OPENAI_EMBEDDING_DIMENSIONS" default:"1536"`
	OpenAIChatModel           string  `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4.1"`
	OpenAITemperature         float32 `envconfig:"OPENAI_TEMPERATURE" default:"0.2"`
	OpenAIRequestsPerSecond   float64 `envconfig:"OPENAI_REQUESTS_PER_SECOND" default:"5"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisStream   string `envconfig:"REDIS_STREAM" default:"askbase:documents"`

	AMQPURL          string `envconfig:"AMQP_URL"`
	AMQPBillingQueue string `envconfig:"AMQP_BILLING_QUEUE" default:"askbase.billing_events"`

	// Embedded so their variables stay flat, e.g. ASKBASE_CHUNK_SIZE.
	Knowledge
	Billing
	Workers
}

// Knowledge controls ingestion and retrieval
type Knowledge struct {
	ChunkSize          int      `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap       int      `envconfig:"CHUNK_OVERLAP" default:"100"`
	ProcessAsync       bool     `envconfig:"PROCESS_ASYNC" default:"false"`
	GenerateEmbeddings bool     `envconfig:"GENERATE_EMBEDDINGS" default:"true"`
	MaxUploadKB        int64    `envconfig:"MAX_UPLOAD_KB" default:"2048"`
	PreviewLength      int      `envconfig:"PREVIEW_LENGTH" default:"1500"`
	AllowedMimeTypes   []string `envconfig:"ALLOWED_MIME_TYPES" default:"text/plain,text/markdown,text/csv,application/json"`
	AllowedExtensions  []string `envconfig:"ALLOWED_EXTENSIONS" default:"txt,md,csv,json"`
	RetrievalTopK      int      `envconfig:"RETRIEVAL_TOP_K" default:"5"`
}

// Billing controls quota enforcement and overage charging
type Billing struct {
	OverageBilled     bool  `envconfig:"BILLING_OVERAGE_BILLED" default:"true"`
	HardLimit         bool  `envconfig:"BILLING_HARD_LIMIT" default:"true"`
	OverageCentsPer1K int64 `envconfig:"BILLING_OVERAGE_CENTS_PER_1K" default:"10"`
}

// Workers sizes the background processors
type Workers struct {
	EmbeddingPollInterval time.Duration `envconfig:"EMBEDDING_POLL_INTERVAL" default:"5s"`
	EmbeddingConcurrency  int           `envconfig:"EMBEDDING_CONCURRENCY" default:"4"`
	DocumentWorkers       int           `envconfig:"DOCUMENT_WORKERS" default:"2"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.Knowledge.AllowedMimeTypes = cleanList(cfg.Knowledge.AllowedMimeTypes)
	cfg.Knowledge.AllowedExtensions = cleanList(cfg.Knowledge.AllowedExtensions)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings that envconfig cannot express
func (c *Config) Validate() error {
	var errs []error
	k := c.Knowledge
	if k.ChunkSize <= 0 {
		errs = append(errs, errors.New("CHUNK_SIZE must be positive"))
	}
	if k.ChunkOverlap < 0 || k.ChunkOverlap >= k.ChunkSize {
		errs = append(errs, errors.New("CHUNK_OVERLAP must be >= 0 and smaller than CHUNK_SIZE"))
	}
	if k.MaxUploadKB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_KB must be positive"))
	}
	if k.PreviewLength <= 0 {
		errs = append(errs, errors.New("PREVIEW_LENGTH must be positive"))
	}
	if k.RetrievalTopK <= 0 {
		errs = append(errs, errors.New("RETRIEVAL_TOP_K must be positive"))
	}
	if k.ProcessAsync && !c.HasRedis() {
		errs = append(errs, errors.New("PROCESS_ASYNC requires REDIS_ADDR"))
	}
	if c.Billing.OverageCentsPer1K < 0 {
		errs = append(errs, errors.New("BILLING_OVERAGE_CENTS_PER_1K cannot be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

func (c *Config) HasAMQP() bool {
	return c.AMQPURL != ""
}

// MaxUploadBytes is MaxUploadKB in bytes
func (k Knowledge) MaxUploadBytes() int64 {
	return k.MaxUploadKB * 1024
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
