package processors

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"videorag/core"
	"videorag/logging"
	"videorag/storage"
)

// VideoSource is the transcript/metadata collaborator. A failure applies to
// a single video only; the orchestrator never lets it abort a batch.
type VideoSource interface {
	FetchVideo(ctx context.Context, videoID string) (core.VideoMetadata, []core.TranscriptEntry, error)
}

// IngestResult summarizes one successfully processed video.
type IngestResult struct {
	VideoID           string   `json:"video_id"`
	Title             string   `json:"title"`
	Duration          float64  `json:"duration"`
	SegmentsProcessed int      `json:"segments_processed"`
	SegmentsStored    int      `json:"segments_stored"`
	EntitiesFound     []string `json:"entities_found"`
}

// IngestionOrchestrator drives the segmentation pipeline over batches of
// videos, keeping the task registry current. The first video of a batch is
// processed synchronously for immediate feedback; the rest run on the
// background runner under a tracked task.
type IngestionOrchestrator struct {
	source   VideoSource
	builder  *SegmentBuilder
	vectors  storage.VectorStore
	graph    storage.GraphStore
	registry *core.TaskRegistry
	runner   core.Runner
	log      *logging.Logger
}

func NewIngestionOrchestrator(
	source VideoSource,
	builder *SegmentBuilder,
	vectors storage.VectorStore,
	graph storage.GraphStore,
	registry *core.TaskRegistry,
	runner core.Runner,
	log *logging.Logger,
) *IngestionOrchestrator {
	return &IngestionOrchestrator{
		source:   source,
		builder:  builder,
		vectors:  vectors,
		graph:    graph,
		registry: registry,
		runner:   runner,
		log:      log.With("component", "ingestion_orchestrator"),
	}
}

// IngestVideos processes the first video synchronously and hands any
// remaining ones to the background runner. The returned task id is empty
// when nothing was queued.
func (o *IngestionOrchestrator) IngestVideos(ctx context.Context, videoIDs []string) (*IngestResult, string, error) {
	if len(videoIDs) == 0 {
		return nil, "", fmt.Errorf("no video ids given")
	}

	first, err := o.ProcessVideo(ctx, videoIDs[0])
	if err != nil {
		return nil, "", err
	}

	taskID := ""
	if len(videoIDs) > 1 {
		remaining := videoIDs[1:]
		command := append([]string{"background_video_processing", "--videos"}, remaining...)
		taskID = o.registry.AddTask(command, map[string]interface{}{
			"video_ids":    remaining,
			"request_type": "temporal_video_ingest",
		})
		o.log.Info("queueing background processing", "task_id", taskID, "videos", len(remaining))

		id := taskID
		if !o.runner.Submit(func(jobCtx context.Context) {
			o.processRemaining(jobCtx, remaining, id)
		}) {
			o.registry.CompleteTask(taskID, false, "background runner rejected the job")
		}
	}
	return first, taskID, nil
}

// processRemaining is the background half of a batch. Per-video failures
// are logged and skipped; the task only fails when the loop itself does.
func (o *IngestionOrchestrator) processRemaining(ctx context.Context, videoIDs []string, taskID string) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("background video processing failed: %v", r)
			o.registry.UpdateProgress(taskID, msg)
			o.registry.CompleteTask(taskID, false, msg)
			o.log.Error("background processing panicked", "task_id", taskID, "panic", r)
		}
	}()

	o.registry.StartTask(taskID)
	o.registry.UpdateProgress(taskID, fmt.Sprintf("Starting background processing for %d videos", len(videoIDs)))

	for i, videoID := range videoIDs {
		o.registry.UpdateProgress(taskID, fmt.Sprintf("Processing video %d/%d: %s", i+1, len(videoIDs), videoID))
		if _, err := o.ProcessVideo(ctx, videoID); err != nil {
			o.log.Warn("video processing failed, continuing batch", "video_id", videoID, "error", err)
		}
	}

	o.registry.UpdateProgress(taskID, "Background video processing completed")
	o.registry.CompleteTask(taskID, true, "")
}

// ProcessVideo runs the full pipeline for one video: fetch, segment,
// extract, persist. Per-segment collaborator failures degrade that segment
// only.
func (o *IngestionOrchestrator) ProcessVideo(ctx context.Context, videoID string) (*IngestResult, error) {
	meta, entries, err := o.source.FetchVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("process video %s: %w", videoID, err)
	}

	segments := o.builder.Build(ctx, entries)
	stored := 0
	for _, segment := range segments {
		docID := storage.SegmentDocID(videoID, segment.StartTime, segment.EndTime)
		metadata := map[string]interface{}{
			"doc_id":       docID,
			"segment_type": "video_segment",
			"video_id":     videoID,
			"video_title":  meta.Title,
			"start_time":   segment.StartTime,
			"end_time":     segment.EndTime,
			"entities":     segment.Entities,
			"topics":       []string{},
		}
		if o.vectors.Store(ctx, docID, segment.Text, metadata) {
			stored++
		} else {
			o.log.Warn("vector store rejected segment", "doc_id", docID)
		}

		if o.graph != nil {
			graphMeta := map[string]interface{}{
				"type":       "video_segment",
				"video_id":   videoID,
				"title":      meta.Title,
				"start_time": segment.StartTime,
				"end_time":   segment.EndTime,
			}
			if err := o.graph.StoreContentWithEntities(ctx, docID, segment.Text, graphMeta, segment.Entities); err != nil {
				o.log.Warn("graph store write failed", "doc_id", docID, "error", err)
			}
		}
	}

	result := &IngestResult{
		VideoID:           videoID,
		Title:             meta.Title,
		Duration:          meta.Duration,
		SegmentsProcessed: len(segments),
		SegmentsStored:    stored,
		EntitiesFound:     collectEntities(segments),
	}
	o.log.Info("video processed",
		"video_id", videoID,
		"segments", result.SegmentsProcessed,
		"stored", result.SegmentsStored,
		"entities", len(result.EntitiesFound))
	return result, nil
}

// VideoInfo fetches and segments a video without persisting anything.
func (o *IngestionOrchestrator) VideoInfo(ctx context.Context, videoID string) (*core.ContentItem, error) {
	meta, entries, err := o.source.FetchVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("video info %s: %w", videoID, err)
	}
	segments := o.builder.Build(ctx, entries)
	var texts []string
	for _, s := range segments {
		texts = append(texts, s.Text)
	}
	return &core.ContentItem{
		ID:       videoID,
		Source:   "youtube",
		Metadata: meta,
		Text:     strings.Join(texts, " "),
		Segments: segments,
	}, nil
}

func collectEntities(segments []core.VideoSegment) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range segments {
		for _, e := range s.Entities {
			key := strings.ToLower(e)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, e)
		}
	}
	sort.Strings(out)
	return out
}
