package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videorag/core"
	"videorag/logging"
)

func entry(start, dur float64, text string) core.TranscriptEntry {
	return core.TranscriptEntry{Start: start, Duration: dur, Text: text}
}

func TestBuildWindowsEmptyTranscript(t *testing.T) {
	assert.Nil(t, BuildWindows(nil, 30))
	assert.Nil(t, BuildWindows([]core.TranscriptEntry{}, 30))
}

func TestBuildWindowsSingleEntry(t *testing.T) {
	segments := BuildWindows([]core.TranscriptEntry{entry(0, 4.5, "hello world")}, 30)
	require.Len(t, segments, 1)
	assert.Equal(t, 0.0, segments[0].StartTime)
	assert.Equal(t, 4.5, segments[0].EndTime)
	assert.Equal(t, "hello world", segments[0].Text)
	assert.Equal(t, 1.0, segments[0].Confidence)
}

func TestBuildWindowsSparseEntriesStretchTheWindow(t *testing.T) {
	entries := []core.TranscriptEntry{
		entry(0, 5, "a"),
		entry(28, 5, "b"),
		entry(40, 5, "c"),
	}
	segments := BuildWindows(entries, 30)
	require.Len(t, segments, 2)

	assert.Equal(t, 0.0, segments[0].StartTime)
	assert.Equal(t, 40.0, segments[0].EndTime)
	assert.Equal(t, "a b", segments[0].Text)

	assert.Equal(t, 40.0, segments[1].StartTime)
	assert.Equal(t, 45.0, segments[1].EndTime)
	assert.Equal(t, "c", segments[1].Text)
}

func TestBuildWindowsDenseTranscript(t *testing.T) {
	var entries []core.TranscriptEntry
	for i := 0; i < 12; i++ {
		entries = append(entries, entry(float64(i)*10, 10, "t"))
	}
	segments := BuildWindows(entries, 30)
	require.Len(t, segments, 4)

	for i, s := range segments {
		assert.Equal(t, float64(i)*30, s.StartTime)
	}
	assert.Equal(t, 120.0, segments[3].EndTime)

	// No gaps, no overlap between consecutive segments.
	for i := 1; i < len(segments); i++ {
		assert.Equal(t, segments[i-1].EndTime, segments[i].StartTime)
	}
}

func TestBuildWindowsShortFinalEntryPadsToWindow(t *testing.T) {
	// Last entry starts exactly at the accumulated window boundary with zero
	// duration, which would make the final segment empty-width.
	entries := []core.TranscriptEntry{
		entry(0, 5, "a"),
		entry(30, 0, "b"),
	}
	segments := BuildWindows(entries, 30)
	require.Len(t, segments, 2)
	assert.Equal(t, 30.0, segments[1].StartTime)
	assert.Equal(t, 60.0, segments[1].EndTime)
}

func TestBuildWindowsCoverage(t *testing.T) {
	entries := []core.TranscriptEntry{
		entry(2, 3, "a"),
		entry(31, 2, "b"),
		entry(33, 2, "c"),
		entry(70, 4, "d"),
	}
	segments := BuildWindows(entries, 30)
	require.NotEmpty(t, segments)

	for _, e := range entries {
		covered := false
		for _, s := range segments {
			if e.Start >= s.StartTime && e.Start < s.EndTime {
				covered = true
				break
			}
		}
		assert.True(t, covered, "entry at %v not covered", e.Start)
	}
}

type fixedExtractor struct {
	entities []string
}

func (f fixedExtractor) ExtractEntities(context.Context, string) []string {
	return f.entities
}

func TestBuildAttachesEntities(t *testing.T) {
	b := NewSegmentBuilder(30, fixedExtractor{entities: []string{"Go", "Kubernetes"}}, logging.NewNop())
	segments := b.Build(context.Background(), []core.TranscriptEntry{entry(0, 5, "talking about Go and Kubernetes")})
	require.Len(t, segments, 1)
	assert.Equal(t, []string{"Go", "Kubernetes"}, segments[0].Entities)
}

func TestBuildNilExtractorResult(t *testing.T) {
	b := NewSegmentBuilder(30, fixedExtractor{entities: nil}, logging.NewNop())
	segments := b.Build(context.Background(), []core.TranscriptEntry{entry(0, 5, "x")})
	require.Len(t, segments, 1)
	assert.NotNil(t, segments[0].Entities)
	assert.Empty(t, segments[0].Entities)
}

func TestNewSegmentBuilderDefaultsWindow(t *testing.T) {
	b := NewSegmentBuilder(0, nil, logging.NewNop())
	assert.Equal(t, DefaultSegmentWindow, b.Window)
}
