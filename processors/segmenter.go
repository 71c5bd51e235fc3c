package processors

import (
	"context"
	"strings"

	"videorag/core"
	"videorag/logging"
)

// DefaultSegmentWindow is the nominal segment length in seconds.
const DefaultSegmentWindow = 30.0

// SegmentBuilder turns a raw time-stamped transcript into fixed-window
// segments enriched with extracted entities.
type SegmentBuilder struct {
	Window    float64
	Extractor EntityExtractor
	log       *logging.Logger
}

func NewSegmentBuilder(window float64, extractor EntityExtractor, log *logging.Logger) *SegmentBuilder {
	if window <= 0 {
		window = DefaultSegmentWindow
	}
	return &SegmentBuilder{
		Window:    window,
		Extractor: extractor,
		log:       log.With("component", "segment_builder"),
	}
}

// Build windows the transcript and extracts entities per segment. Extractor
// failures leave the segment with an empty entity list; the segment is
// still emitted.
func (b *SegmentBuilder) Build(ctx context.Context, entries []core.TranscriptEntry) []core.VideoSegment {
	segments := BuildWindows(entries, b.Window)
	for i := range segments {
		if b.Extractor == nil {
			continue
		}
		entities := b.Extractor.ExtractEntities(ctx, segments[i].Text)
		if entities == nil {
			entities = []string{}
		}
		segments[i].Entities = entities
	}
	b.log.Debug("built segments", "count", len(segments), "window", b.Window)
	return segments
}

// BuildWindows is the pure windowing pass. The current window opens at time
// zero; an entry whose start is at or past the window's nominal end closes
// the window using that entry's start as the boundary, so windows run long
// when entries are sparse rather than leaving gaps. The final window ends
// at the last entry's start plus its duration. An empty transcript yields
// no segments.
func BuildWindows(entries []core.TranscriptEntry, window float64) []core.VideoSegment {
	if window <= 0 {
		window = DefaultSegmentWindow
	}
	if len(entries) == 0 {
		return nil
	}

	var segments []core.VideoSegment
	windowStart := 0.0
	var texts []string

	flush := func(end float64) {
		if len(texts) == 0 {
			return
		}
		segments = append(segments, core.VideoSegment{
			StartTime:  windowStart,
			EndTime:    end,
			Text:       strings.Join(texts, " "),
			Entities:   []string{},
			Confidence: 1.0,
		})
	}

	for _, entry := range entries {
		if entry.Start >= windowStart+window {
			flush(entry.Start)
			windowStart = entry.Start
			texts = texts[:0]
		}
		texts = append(texts, entry.Text)
	}

	last := entries[len(entries)-1]
	end := last.Start + last.Duration
	if end <= windowStart {
		end = windowStart + window
	}
	flush(end)

	return segments
}
