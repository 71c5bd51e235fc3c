package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"videorag/config"
	"videorag/core"
	"videorag/logging"
)

// MilvusVectorStore keeps documents in a Milvus collection keyed by doc_id.
// Metadata is serialized to a JSON varchar field.
type MilvusVectorStore struct {
	mc       client.Client
	coll     string
	dim      int
	embedder Embedder
	log      *logging.Logger
}

func newMilvusVectorStore(ctx context.Context, cfg *config.Config, embedder Embedder, log *logging.Logger) (*MilvusVectorStore, error) {
	mc, err := client.NewClient(ctx, client.Config{
		Address:  cfg.MilvusAddr,
		Username: cfg.MilvusUsername,
		Password: cfg.MilvusPassword,
		APIKey:   cfg.MilvusAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}

	s := &MilvusVectorStore{
		mc:       mc,
		coll:     cfg.MilvusCollection,
		dim:      embeddingDim,
		embedder: embedder,
		log:      log.With("component", "milvus_store"),
	}
	if err := s.ensureSchemaAndIndex(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MilvusVectorStore) ensureSchemaAndIndex(ctx context.Context) error {
	has, err := s.mc.HasCollection(ctx, s.coll)
	if err != nil {
		return err
	}
	if !has {
		schema := entity.NewSchema()
		schema.WithField(entity.NewField().WithName("doc_id").WithIsPrimaryKey(true).WithDataType(entity.FieldTypeVarChar).WithMaxLength(512))
		schema.WithField(entity.NewField().WithName("content").WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192))
		schema.WithField(entity.NewField().WithName("metadata").WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))

		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return fmt.Errorf("new hnsw index: %w", err)
	}
	if err := s.mc.CreateIndex(ctx, s.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := s.mc.LoadCollection(ctx, s.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

// Store upserts one document. Unlike the pgvector backend, Milvus requires a
// vector for every row, so an embedding failure drops the write.
func (s *MilvusVectorStore) Store(ctx context.Context, docID, text string, metadata map[string]interface{}) bool {
	if s.embedder == nil {
		return false
	}
	vec, err := s.embedder.Embed(ctx, strings.ToLower(text))
	if err != nil {
		s.log.Warn("embedding failed, dropping document", "doc_id", docID, "error", err)
		return false
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		s.log.Error("failed to marshal metadata", "doc_id", docID, "error", err)
		return false
	}

	_, err = s.mc.Upsert(ctx, s.coll, "",
		entity.NewColumnVarChar("doc_id", []string{docID}),
		entity.NewColumnVarChar("content", []string{text}),
		entity.NewColumnVarChar("metadata", []string{string(metaJSON)}),
		entity.NewColumnFloatVector("vector", s.dim, [][]float32{vec}),
	)
	if err != nil {
		s.log.Error("milvus upsert failed", "doc_id", docID, "error", err)
		return false
	}
	return true
}

func (s *MilvusVectorStore) Search(ctx context.Context, query string, k int) []core.RawHit {
	if k <= 0 {
		k = 5
	}
	if s.embedder == nil {
		return nil
	}
	vec, err := s.embedder.Embed(ctx, strings.ToLower(query))
	if err != nil {
		s.log.Error("query embedding failed", "error", err)
		return nil
	}

	sp, _ := entity.NewIndexHNSWSearchParam(74)
	res, err := s.mc.Search(ctx, s.coll, []string{}, "", []string{"content", "metadata"},
		[]entity.Vector{entity.FloatVector(vec)}, "vector", entity.COSINE, k, sp)
	if err != nil {
		s.log.Error("milvus search failed", "error", err)
		return nil
	}

	var hits []core.RawHit
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			var content, metaJSON string
			if c, ok := cols["content"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					content = data[i]
				}
			}
			if c, ok := cols["metadata"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					metaJSON = data[i]
				}
			}
			metadata := map[string]interface{}{}
			if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
				s.log.Warn("failed to decode document metadata", "error", err)
				continue
			}
			hits = append(hits, core.RawHit{Content: content, Metadata: metadata, Score: float64(r.Scores[i])})
		}
	}
	return hits
}

func (s *MilvusVectorStore) Count(ctx context.Context) (int, error) {
	stats, err := s.mc.GetCollectionStatistics(ctx, s.coll)
	if err != nil {
		return 0, fmt.Errorf("collection statistics: %w", err)
	}
	var count int
	if _, err := fmt.Sscanf(stats["row_count"], "%d", &count); err != nil {
		return 0, fmt.Errorf("parse row count: %w", err)
	}
	return count, nil
}

func (s *MilvusVectorStore) DeleteAll(ctx context.Context) error {
	if err := s.mc.DropCollection(ctx, s.coll); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return s.ensureSchemaAndIndex(ctx)
}

func (s *MilvusVectorStore) Close(ctx context.Context) error {
	return s.mc.Close()
}
