package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"videorag/config"
	"videorag/core"
	"videorag/logging"
)

const embeddingDim = 1536

// PgVectorStore keeps documents and their embeddings in Postgres with the
// pgvector extension. Documents are upserted by doc_id; metadata travels as
// jsonb.
type PgVectorStore struct {
	conn     *pgx.Conn
	embedder Embedder
	log      *logging.Logger
}

func newPgVectorStore(ctx context.Context, cfg *config.Config, embedder Embedder, log *logging.Logger) (*PgVectorStore, error) {
	conn, err := pgx.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PgVectorStore{conn: conn, embedder: embedder, log: log.With("component", "pgvector_store")}
	if err := s.ensureSchema(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *PgVectorStore) ensureSchema(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	tableQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS documents (
			id SERIAL PRIMARY KEY,
			doc_id VARCHAR(512) UNIQUE NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`, embeddingDim)
	if _, err := s.conn.Exec(ctx, tableQuery); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_documents_doc_id ON documents(doc_id);",
		"CREATE INDEX IF NOT EXISTS idx_documents_video_id ON documents((metadata->>'video_id'));",
	}
	for _, q := range indexes {
		if _, err := s.conn.Exec(ctx, q); err != nil {
			s.log.Warn("failed to create index", "error", err)
		}
	}

	vectorIndex := `
		CREATE INDEX IF NOT EXISTS idx_documents_embedding
		ON documents USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100);
	`
	if _, err := s.conn.Exec(ctx, vectorIndex); err != nil {
		s.log.Warn("failed to create vector index", "error", err)
	}
	return nil
}

// Store upserts a document. An embedding failure stores the row without a
// vector rather than dropping it; such rows are invisible to Search but
// still counted.
func (s *PgVectorStore) Store(ctx context.Context, docID, text string, metadata map[string]interface{}) bool {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		s.log.Error("failed to marshal metadata", "doc_id", docID, "error", err)
		return false
	}

	var vec interface{}
	if s.embedder != nil {
		if embedding, err := s.embedder.Embed(ctx, strings.ToLower(text)); err != nil {
			s.log.Warn("embedding failed, storing document without vector", "doc_id", docID, "error", err)
		} else {
			vec = pgvector.NewVector(embedding)
		}
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO documents (doc_id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (doc_id)
		DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding
	`, docID, text, metaJSON, vec)
	if err != nil {
		s.log.Error("failed to upsert document", "doc_id", docID, "error", err)
		return false
	}
	return true
}

func (s *PgVectorStore) Search(ctx context.Context, query string, k int) []core.RawHit {
	if k <= 0 {
		k = 5
	}
	if s.embedder == nil {
		return nil
	}

	queryEmbedding, err := s.embedder.Embed(ctx, strings.ToLower(query))
	if err != nil {
		s.log.Error("query embedding failed", "error", err)
		return nil
	}
	vec := pgvector.NewVector(queryEmbedding)

	rows, err := s.conn.Query(ctx, `
		SELECT content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM documents
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`, vec, k)
	if err != nil {
		s.log.Error("vector search failed", "error", err)
		return nil
	}
	defer rows.Close()

	var hits []core.RawHit
	for rows.Next() {
		var content string
		var metaJSON []byte
		var similarity float64
		if err := rows.Scan(&content, &metaJSON, &similarity); err != nil {
			continue
		}
		metadata := map[string]interface{}{}
		if err := json.Unmarshal(metaJSON, &metadata); err != nil {
			s.log.Warn("failed to decode document metadata", "error", err)
			continue
		}
		hits = append(hits, core.RawHit{Content: content, Metadata: metadata, Score: similarity})
	}
	return hits
}

func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRow(ctx, "SELECT COUNT(*) FROM documents").Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func (s *PgVectorStore) DeleteAll(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, "TRUNCATE documents"); err != nil {
		return fmt.Errorf("truncate documents: %w", err)
	}
	return nil
}

func (s *PgVectorStore) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
