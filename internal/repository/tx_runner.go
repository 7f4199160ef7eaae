package repository

import (
	"context"

	"github.com/cloo-solutions/askbase/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner hands out repositories bound to a single pgx transaction.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txRepos{tx: tx})
	})
}

type txRepos struct {
	tx pgx.Tx
}

func (r *txRepos) Documents() service.DocumentRepositoryInterface {
	return NewDocumentRepositoryWithTx(r.tx)
}

func (r *txRepos) Chunks() service.ChunkRepositoryInterface {
	return NewChunkRepositoryWithTx(r.tx)
}

func (r *txRepos) EmbeddingJobs() service.EmbeddingJobRepositoryInterface {
	return NewEmbeddingJobRepositoryWithTx(r.tx)
}
