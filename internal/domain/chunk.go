package domain

import "time"

// Chunk is a window of a document's normalized text, the unit of embedding
// and retrieval. Embedding is nil until the embedding job lands.
type Chunk struct {
	ID              string
	TenantID        string
	DocumentID      string
	ChunkIndex      int
	Content         string
	ContentHash     string
	TokensEstimated int
	Embedding       []float32
	EmbeddingTokens int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasEmbedding reports whether the chunk is searchable.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ScoredChunk is a similarity search hit.
type ScoredChunk struct {
	Chunk
	Distance float64
}
