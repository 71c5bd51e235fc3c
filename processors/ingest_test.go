package processors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videorag/core"
	"videorag/logging"
	"videorag/storage"
)

type fakeSource struct {
	videos map[string][]core.TranscriptEntry
}

func (f *fakeSource) FetchVideo(_ context.Context, videoID string) (core.VideoMetadata, []core.TranscriptEntry, error) {
	entries, ok := f.videos[videoID]
	if !ok {
		return core.VideoMetadata{}, nil, fmt.Errorf("video %s not found", videoID)
	}
	return core.VideoMetadata{VideoID: videoID, Title: "Title " + videoID, Duration: 100}, entries, nil
}

type recordingVectorStore struct {
	stored map[string]map[string]interface{}
}

func newRecordingVectorStore() *recordingVectorStore {
	return &recordingVectorStore{stored: map[string]map[string]interface{}{}}
}

func (r *recordingVectorStore) Store(_ context.Context, docID, _ string, metadata map[string]interface{}) bool {
	r.stored[docID] = metadata
	return true
}

func (r *recordingVectorStore) Search(context.Context, string, int) []core.RawHit { return nil }
func (r *recordingVectorStore) Count(context.Context) (int, error)                { return len(r.stored), nil }
func (r *recordingVectorStore) DeleteAll(context.Context) error                   { return nil }

type recordingGraphStore struct {
	contents map[string][]string
	err      error
}

func newRecordingGraphStore() *recordingGraphStore {
	return &recordingGraphStore{contents: map[string][]string{}}
}

func (g *recordingGraphStore) StoreContentWithEntities(_ context.Context, docID, _ string, _ map[string]interface{}, entities []string) error {
	if g.err != nil {
		return g.err
	}
	g.contents[docID] = entities
	return nil
}

func (g *recordingGraphStore) GetAllEntities(context.Context) ([]storage.GraphNode, error) {
	return nil, nil
}
func (g *recordingGraphStore) GetWholeGraph(context.Context) (*storage.Graph, error) { return nil, nil }
func (g *recordingGraphStore) GetFactsForEntity(context.Context, string) ([]string, error) {
	return nil, nil
}
func (g *recordingGraphStore) DeleteAll(context.Context) error { return nil }
func (g *recordingGraphStore) Close(context.Context) error     { return nil }

func testOrchestrator(source *fakeSource, vectors *recordingVectorStore, registry *core.TaskRegistry) *IngestionOrchestrator {
	builder := NewSegmentBuilder(30, fixedExtractor{entities: []string{"Go"}}, logging.NewNop())
	return NewIngestionOrchestrator(source, builder, vectors, nil, registry, core.InlineRunner{}, logging.NewNop())
}

func transcript() []core.TranscriptEntry {
	return []core.TranscriptEntry{
		{Start: 0, Duration: 5, Text: "a"},
		{Start: 40, Duration: 5, Text: "b"},
	}
}

func TestProcessVideoStoresSegments(t *testing.T) {
	source := &fakeSource{videos: map[string][]core.TranscriptEntry{"abc": transcript()}}
	vectors := newRecordingVectorStore()
	registry := core.NewTaskRegistry(logging.NewNop())
	o := testOrchestrator(source, vectors, registry)

	result, err := o.ProcessVideo(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, "abc", result.VideoID)
	assert.Equal(t, 2, result.SegmentsProcessed)
	assert.Equal(t, 2, result.SegmentsStored)
	assert.Equal(t, []string{"Go"}, result.EntitiesFound)

	require.Len(t, vectors.stored, 2)
	for docID, meta := range vectors.stored {
		assert.Equal(t, "video_segment", meta["segment_type"])
		assert.Equal(t, "abc", meta["video_id"])
		assert.Equal(t, docID, meta["doc_id"])
	}
}

func TestProcessVideoUnknownVideo(t *testing.T) {
	source := &fakeSource{videos: map[string][]core.TranscriptEntry{}}
	o := testOrchestrator(source, newRecordingVectorStore(), core.NewTaskRegistry(logging.NewNop()))

	_, err := o.ProcessVideo(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestIngestVideosSingleVideoNoTask(t *testing.T) {
	source := &fakeSource{videos: map[string][]core.TranscriptEntry{"abc": transcript()}}
	registry := core.NewTaskRegistry(logging.NewNop())
	o := testOrchestrator(source, newRecordingVectorStore(), registry)

	result, taskID, err := o.IngestVideos(context.Background(), []string{"abc"})
	require.NoError(t, err)
	assert.Equal(t, "abc", result.VideoID)
	assert.Empty(t, taskID)
	assert.Empty(t, registry.GetAllTasks(true, 0))
}

func TestIngestVideosQueuesRemainder(t *testing.T) {
	source := &fakeSource{videos: map[string][]core.TranscriptEntry{
		"one":   transcript(),
		"two":   transcript(),
		"three": transcript(),
	}}
	vectors := newRecordingVectorStore()
	registry := core.NewTaskRegistry(logging.NewNop())
	o := testOrchestrator(source, vectors, registry)

	result, taskID, err := o.IngestVideos(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	assert.Equal(t, "one", result.VideoID)
	require.NotEmpty(t, taskID)

	// InlineRunner runs the background half synchronously, so the task is
	// already finished here.
	task := registry.GetTask(taskID)
	require.NotNil(t, task)
	assert.Equal(t, core.TaskCompleted, task.Status)
	assert.Equal(t, "Background video processing completed", task.Progress)
	assert.Equal(t, []string{"background_video_processing", "--videos", "two", "three"}, task.Command)

	// Two segments per video, three videos.
	assert.Len(t, vectors.stored, 6)
}

func TestIngestVideosFirstVideoFailureAborts(t *testing.T) {
	source := &fakeSource{videos: map[string][]core.TranscriptEntry{"two": transcript()}}
	registry := core.NewTaskRegistry(logging.NewNop())
	o := testOrchestrator(source, newRecordingVectorStore(), registry)

	_, taskID, err := o.IngestVideos(context.Background(), []string{"missing", "two"})
	require.Error(t, err)
	assert.Empty(t, taskID)
	assert.Empty(t, registry.GetAllTasks(true, 0))
}

func TestBackgroundFailuresDoNotFailTask(t *testing.T) {
	source := &fakeSource{videos: map[string][]core.TranscriptEntry{
		"one":   transcript(),
		"three": transcript(),
	}}
	vectors := newRecordingVectorStore()
	registry := core.NewTaskRegistry(logging.NewNop())
	o := testOrchestrator(source, vectors, registry)

	_, taskID, err := o.IngestVideos(context.Background(), []string{"one", "missing", "three"})
	require.NoError(t, err)

	task := registry.GetTask(taskID)
	require.NotNil(t, task)
	assert.Equal(t, core.TaskCompleted, task.Status)
	assert.Len(t, vectors.stored, 4)
}

type rejectingRunner struct{}

func (rejectingRunner) Submit(func(ctx context.Context)) bool { return false }

func TestIngestVideosRunnerRejection(t *testing.T) {
	source := &fakeSource{videos: map[string][]core.TranscriptEntry{"one": transcript()}}
	registry := core.NewTaskRegistry(logging.NewNop())
	builder := NewSegmentBuilder(30, nil, logging.NewNop())
	o := NewIngestionOrchestrator(source, builder, newRecordingVectorStore(), nil, registry, rejectingRunner{}, logging.NewNop())

	_, taskID, err := o.IngestVideos(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	task := registry.GetTask(taskID)
	require.NotNil(t, task)
	assert.Equal(t, core.TaskFailed, task.Status)
	assert.Contains(t, task.ErrorMessage, "rejected")
}

func TestProcessVideoWritesGraph(t *testing.T) {
	source := &fakeSource{videos: map[string][]core.TranscriptEntry{"abc": transcript()}}
	graph := newRecordingGraphStore()
	builder := NewSegmentBuilder(30, fixedExtractor{entities: []string{"Go"}}, logging.NewNop())
	registry := core.NewTaskRegistry(logging.NewNop())
	o := NewIngestionOrchestrator(source, builder, newRecordingVectorStore(), graph, registry, core.InlineRunner{}, logging.NewNop())

	result, err := o.ProcessVideo(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 2, result.SegmentsStored)

	require.Len(t, graph.contents, 2)
	for _, entities := range graph.contents {
		assert.Equal(t, []string{"Go"}, entities)
	}
}

func TestProcessVideoGraphErrorIsTolerated(t *testing.T) {
	source := &fakeSource{videos: map[string][]core.TranscriptEntry{"abc": transcript()}}
	graph := newRecordingGraphStore()
	graph.err = fmt.Errorf("neo4j unavailable")
	builder := NewSegmentBuilder(30, nil, logging.NewNop())
	registry := core.NewTaskRegistry(logging.NewNop())
	o := NewIngestionOrchestrator(source, builder, newRecordingVectorStore(), graph, registry, core.InlineRunner{}, logging.NewNop())

	result, err := o.ProcessVideo(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 2, result.SegmentsStored)
}

func TestVideoInfoDoesNotPersist(t *testing.T) {
	source := &fakeSource{videos: map[string][]core.TranscriptEntry{"abc": transcript()}}
	vectors := newRecordingVectorStore()
	o := testOrchestrator(source, vectors, core.NewTaskRegistry(logging.NewNop()))

	info, err := o.VideoInfo(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", info.ID)
	assert.Equal(t, "youtube", info.Source)
	assert.Len(t, info.Segments, 2)
	assert.Empty(t, vectors.stored)
}
