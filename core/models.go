package core

// ========== Transcript and segment structures ==========

// TranscriptEntry is one time-stamped line of a video transcript as
// delivered by the source collaborator.
type TranscriptEntry struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// VideoSegment is a fixed-duration slice of a transcript enriched with
// extracted entities and an optional embedding. Segments are built once per
// ingestion pass and never mutated.
type VideoSegment struct {
	StartTime  float64   `json:"start_time"`
	EndTime    float64   `json:"end_time"`
	Text       string    `json:"text"`
	Entities   []string  `json:"entities"`
	Confidence float64   `json:"confidence"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// VideoMetadata describes a video independent of its transcript.
type VideoMetadata struct {
	VideoID      string  `json:"video_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Duration     float64 `json:"duration"`
	Author       string  `json:"author,omitempty"`
	URL          string  `json:"url"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	UploadedAt   string  `json:"uploaded_at,omitempty"`
}

// ContentItem is the unit produced by a source strategy: one piece of
// content plus its temporal segments.
type ContentItem struct {
	ID       string         `json:"id"`
	Source   string         `json:"source"`
	Metadata VideoMetadata  `json:"metadata"`
	Text     string         `json:"text"`
	Segments []VideoSegment `json:"segments"`
}

// ========== Search structures ==========

// RawHit is what the vector store returns before filtering and
// deduplication. Metadata carries at minimum segment_type, video_id,
// start_time, end_time and entities for video segments.
type RawHit struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Score    float64                `json:"score"`
}

// TemporalSearchResult is one deduplicated search or timeline entry,
// identified by the (video_id, start_time, end_time) triple.
type TemporalSearchResult struct {
	VideoID     string   `json:"video_id"`
	VideoTitle  string   `json:"video_title"`
	VideoURL    string   `json:"video_url"`
	StartTime   float64  `json:"start_time"`
	EndTime     float64  `json:"end_time"`
	MatchedText string   `json:"matched_text"`
	Entities    []string `json:"entities"`
	Topics      []string `json:"topics"`
	Confidence  float64  `json:"confidence"`
	SegmentID   string   `json:"segment_id"`
}

// TemporalSearchQuery describes an ad-hoc temporal search.
type TemporalSearchQuery struct {
	Query        string      `json:"query"`
	VideoIDs     []string    `json:"video_ids,omitempty"`
	EntityFilter string      `json:"entity_filter,omitempty"`
	TopicFilter  string      `json:"topic_filter,omitempty"`
	TimeRange    *[2]float64 `json:"time_range,omitempty"`
	MaxResults   int         `json:"max_results"`
}
