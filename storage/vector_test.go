package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryVectorStore()
	ctx := context.Background()

	ok := s.Store(ctx, "doc1", "kubernetes cluster networking", map[string]interface{}{"video_id": "abc"})
	require.True(t, ok)
	s.Store(ctx, "doc2", "docker image layering", map[string]interface{}{"video_id": "def"})

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	hits := s.Search(ctx, "kubernetes networking", 5)
	require.NotEmpty(t, hits)
	assert.Equal(t, "kubernetes cluster networking", hits[0].Content)
	assert.Equal(t, "abc", hits[0].Metadata["video_id"])
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestMemoryStoreUpsert(t *testing.T) {
	s := NewMemoryVectorStore()
	ctx := context.Background()

	s.Store(ctx, "doc1", "old text", nil)
	s.Store(ctx, "doc1", "new text", nil)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	hits := s.Search(ctx, "new text", 1)
	require.Len(t, hits, 1)
	assert.Equal(t, "new text", hits[0].Content)
}

func TestMemoryStoreEmptyQueryScansInsertionOrder(t *testing.T) {
	s := NewMemoryVectorStore()
	ctx := context.Background()

	s.Store(ctx, "a", "first", nil)
	s.Store(ctx, "b", "second", nil)
	s.Store(ctx, "c", "third", nil)

	hits := s.Search(ctx, "", 10)
	require.Len(t, hits, 3)
	assert.Equal(t, "first", hits[0].Content)
	assert.Equal(t, "second", hits[1].Content)
	assert.Equal(t, "third", hits[2].Content)
}

func TestMemoryStoreSearchCapsAtK(t *testing.T) {
	s := NewMemoryVectorStore()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		s.Store(ctx, SegmentDocID("vid", float64(i), float64(i+1)), "text", nil)
	}

	assert.Len(t, s.Search(ctx, "text", 3), 3)
}

func TestMemoryStoreDeleteAll(t *testing.T) {
	s := NewMemoryVectorStore()
	ctx := context.Background()
	s.Store(ctx, "doc1", "text", nil)

	require.NoError(t, s.DeleteAll(ctx))
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, s.Search(ctx, "text", 5))
}

func TestSegmentDocID(t *testing.T) {
	assert.Equal(t, "abc_0.00_30.00", SegmentDocID("abc", 0, 30))
	assert.Equal(t, "abc_30.50_61.25", SegmentDocID("abc", 30.5, 61.25))
}
