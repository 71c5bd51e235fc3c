package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"videorag/config"
	"videorag/core"
	"videorag/logging"
)

// VectorStore abstracts the vector index backend. Implementations index
// arbitrary documents; video segments are tagged through metadata
// (segment_type, video_id, start_time, end_time, entities).
type VectorStore interface {
	Store(ctx context.Context, docID, text string, metadata map[string]interface{}) bool
	Search(ctx context.Context, query string, k int) []core.RawHit
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// Embedder turns text into a vector. Optional: a nil Embedder or a failing
// call never blocks segment emission.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

func NewOpenAIEmbedder(cfg *config.Config) *OpenAIEmbedder {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.EmbeddingModel,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding API failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return resp.Data[0].Embedding, nil
}

// NewVectorStore selects the backend from configuration. Pgvector and
// milvus fail hard when unreachable; the memory backend always works and is
// the explicit default for development.
func NewVectorStore(ctx context.Context, cfg *config.Config, embedder Embedder, log *logging.Logger) (VectorStore, error) {
	switch strings.ToLower(cfg.VectorBackend) {
	case "pgvector":
		return newPgVectorStore(ctx, cfg, embedder, log)
	case "milvus":
		return newMilvusVectorStore(ctx, cfg, embedder, log)
	case "memory":
		return NewMemoryVectorStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", cfg.VectorBackend)
	}
}

// ---------------- Memory implementation ----------------

// MemoryVectorStore is a term-frequency index used for development and
// tests. Scoring is cosine over L2-normalized term weights.
type MemoryVectorStore struct {
	mu   sync.RWMutex
	docs map[string]memoryDoc
	// order preserves insertion order so empty-query scans are stable
	order []string
}

type memoryDoc struct {
	text     string
	metadata map[string]interface{}
	embed    map[string]float64
}

func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{docs: map[string]memoryDoc{}}
}

func (s *MemoryVectorStore) Store(_ context.Context, docID, text string, metadata map[string]interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[docID]; !exists {
		s.order = append(s.order, docID)
	}
	s.docs[docID] = memoryDoc{text: text, metadata: metadata, embed: embedTerms(strings.ToLower(text))}
	return true
}

func (s *MemoryVectorStore) Search(_ context.Context, query string, k int) []core.RawHit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 {
		k = 5
	}

	qv := embedTerms(strings.ToLower(query))
	type scored struct {
		id    string
		score float64
	}
	scores := make([]scored, 0, len(s.docs))
	for _, id := range s.order {
		scores = append(scores, scored{id, cosine(qv, s.docs[id].embed)})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}

	hits := make([]core.RawHit, 0, k)
	for _, sc := range scores[:k] {
		d := s.docs[sc.id]
		hits = append(hits, core.RawHit{Content: d.text, Metadata: d.metadata, Score: sc.score})
	}
	return hits
}

func (s *MemoryVectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *MemoryVectorStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = map[string]memoryDoc{}
	s.order = nil
	return nil
}

func embedTerms(text string) map[string]float64 {
	m := map[string]float64{}
	for _, t := range strings.Fields(text) {
		m[t]++
	}
	var sum float64
	for _, v := range m {
		sum += v * v
	}
	if sum == 0 {
		return m
	}
	norm := math.Sqrt(sum)
	for k, v := range m {
		m[k] = v / norm
	}
	return m
}

func cosine(a, b map[string]float64) float64 {
	var dot float64
	for k, va := range a {
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	return dot
}

// SegmentDocID derives the deterministic vector-store id for a segment from
// its identity triple.
func SegmentDocID(videoID string, start, end float64) string {
	return fmt.Sprintf("%s_%.2f_%.2f", videoID, start, end)
}
