package search

import (
	"context"
	"sort"
	"strings"

	"videorag/core"
	"videorag/logging"
	"videorag/storage"
)

const (
	// DefaultOverfetchFactor controls how many extra raw hits are requested
	// to compensate for filtering and deduplication shrinkage.
	DefaultOverfetchFactor = 2
	defaultMaxResults      = 10
	// timelineFetchSize is effectively unbounded for the expected number of
	// segments per video.
	timelineFetchSize = 1000
)

// Service answers temporal queries over indexed video segments. The vector
// store can index the same segment more than once, so the
// (video_id, start_time, end_time) triple is the only identity results are
// deduplicated by.
type Service struct {
	vectors   storage.VectorStore
	overfetch int
	log       *logging.Logger
}

func NewService(vectors storage.VectorStore, overfetch int, log *logging.Logger) *Service {
	if overfetch < 1 {
		overfetch = DefaultOverfetchFactor
	}
	return &Service{
		vectors:   vectors,
		overfetch: overfetch,
		log:       log.With("component", "temporal_search"),
	}
}

// Search runs a filtered ad-hoc query. Results are deduplicated, ordered by
// descending confidence (stable, so ties keep arrival order) and capped at
// MaxResults. No match yields an empty slice, not an error.
func (s *Service) Search(ctx context.Context, query core.TemporalSearchQuery) []core.TemporalSearchResult {
	maxResults := query.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	searchText := query.Query
	if query.EntityFilter != "" {
		searchText += " " + query.EntityFilter
	}
	if query.TopicFilter != "" {
		searchText += " " + query.TopicFilter
	}

	raw := s.vectors.Search(ctx, searchText, maxResults*s.overfetch)
	s.log.Debug("vector search returned raw hits", "count", len(raw), "query", query.Query)

	results := filterHits(raw, query)
	results = Deduplicate(results)

	sort.SliceStable(results, func(i, j int) bool { return results[i].Confidence > results[j].Confidence })
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// SearchByEntity finds mentions of one entity, optionally restricted to a
// set of videos.
func (s *Service) SearchByEntity(ctx context.Context, entity string, videoIDs []string, maxResults int) []core.TemporalSearchResult {
	return s.Search(ctx, core.TemporalSearchQuery{
		Query:        entity,
		VideoIDs:     videoIDs,
		EntityFilter: entity,
		MaxResults:   maxResults,
	})
}

// SearchByTopic finds discussions of one topic, optionally restricted to a
// set of videos.
func (s *Service) SearchByTopic(ctx context.Context, topic string, videoIDs []string, maxResults int) []core.TemporalSearchResult {
	return s.Search(ctx, core.TemporalSearchQuery{
		Query:       topic,
		VideoIDs:    videoIDs,
		TopicFilter: topic,
		MaxResults:  maxResults,
	})
}

// VideoTimeline reconstructs a video chronologically: every indexed segment
// of the video, deduplicated by triple, sorted ascending by start time.
// A video with no indexed segments yields an empty slice.
func (s *Service) VideoTimeline(ctx context.Context, videoID string) []core.TemporalSearchResult {
	raw := s.vectors.Search(ctx, "", timelineFetchSize)

	var timeline []core.TemporalSearchResult
	for _, hit := range raw {
		if metaString(hit.Metadata, "segment_type") != "video_segment" {
			continue
		}
		if metaString(hit.Metadata, "video_id") != videoID {
			continue
		}
		timeline = append(timeline, hitToResult(hit))
	}
	timeline = Deduplicate(timeline)

	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].StartTime < timeline[j].StartTime })
	s.log.Debug("timeline assembled", "video_id", videoID, "segments", len(timeline))
	return timeline
}

func filterHits(raw []core.RawHit, query core.TemporalSearchQuery) []core.TemporalSearchResult {
	allow := map[string]bool{}
	for _, id := range query.VideoIDs {
		allow[id] = true
	}

	var out []core.TemporalSearchResult
	for _, hit := range raw {
		if metaString(hit.Metadata, "segment_type") != "video_segment" {
			continue
		}
		videoID := metaString(hit.Metadata, "video_id")
		if len(allow) > 0 && !allow[videoID] {
			continue
		}
		startTime := metaFloat(hit.Metadata, "start_time")
		if query.TimeRange != nil && (startTime < query.TimeRange[0] || startTime > query.TimeRange[1]) {
			continue
		}
		if query.EntityFilter != "" && !containsFold(metaStrings(hit.Metadata, "entities"), query.EntityFilter) {
			continue
		}
		out = append(out, hitToResult(hit))
	}
	return out
}

// Deduplicate drops entries that repeat an earlier entry's
// (video_id, start_time, end_time) triple. First occurrence wins; the
// operation is idempotent.
func Deduplicate(results []core.TemporalSearchResult) []core.TemporalSearchResult {
	type tripleKey struct {
		videoID    string
		start, end float64
	}
	seen := map[tripleKey]bool{}
	out := results[:0:0]
	for _, r := range results {
		key := tripleKey{r.VideoID, r.StartTime, r.EndTime}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func hitToResult(hit core.RawHit) core.TemporalSearchResult {
	videoID := metaString(hit.Metadata, "video_id")
	return core.TemporalSearchResult{
		VideoID:     videoID,
		VideoTitle:  metaString(hit.Metadata, "video_title"),
		VideoURL:    "https://youtu.be/" + videoID,
		StartTime:   metaFloat(hit.Metadata, "start_time"),
		EndTime:     metaFloat(hit.Metadata, "end_time"),
		MatchedText: hit.Content,
		Entities:    metaStrings(hit.Metadata, "entities"),
		Topics:      metaStrings(hit.Metadata, "topics"),
		Confidence:  1.0,
		SegmentID:   metaString(hit.Metadata, "doc_id"),
	}
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func metaString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func metaFloat(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func metaStrings(m map[string]interface{}, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
