package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"videorag/core"
	"videorag/logging"
)

// YouTubeSource fetches video metadata through the public oEmbed endpoint
// and transcripts through the timedtext endpoint. Both calls are plain HTTP
// with no API key.
type YouTubeSource struct {
	client *http.Client
	log    *logging.Logger
}

func NewYouTubeSource(log *logging.Logger) *YouTubeSource {
	return &YouTubeSource{
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.With("component", "youtube_source"),
	}
}

var youtubeIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/v/([^&\n?#]+)`),
}

// ExtractYouTubeID pulls the video id out of the common YouTube URL shapes.
// Inputs that are already bare ids pass through unchanged.
func ExtractYouTubeID(input string) string {
	for _, pattern := range youtubeIDPatterns {
		if m := pattern.FindStringSubmatch(input); m != nil {
			return m[1]
		}
	}
	return input
}

// FetchVideo returns the video's metadata and its ordered transcript.
// A metadata failure aborts the video; a transcript failure yields metadata
// with an empty transcript so the caller can decide to skip.
func (s *YouTubeSource) FetchVideo(ctx context.Context, videoID string) (core.VideoMetadata, []core.TranscriptEntry, error) {
	meta, err := s.fetchMetadata(ctx, videoID)
	if err != nil {
		return core.VideoMetadata{}, nil, fmt.Errorf("fetch metadata for %s: %w", videoID, err)
	}

	entries, err := s.fetchTranscript(ctx, videoID)
	if err != nil {
		s.log.Warn("transcript fetch failed", "video_id", videoID, "error", err)
		return meta, nil, nil
	}
	if len(entries) > 0 {
		last := entries[len(entries)-1]
		meta.Duration = last.Start + last.Duration
	}
	return meta, entries, nil
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (s *YouTubeSource) fetchMetadata(ctx context.Context, videoID string) (core.VideoMetadata, error) {
	videoURL := "https://youtu.be/" + videoID
	endpoint := "https://www.youtube.com/oembed?format=json&url=" + url.QueryEscape(videoURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.VideoMetadata{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return core.VideoMetadata{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return core.VideoMetadata{}, fmt.Errorf("oembed returned %d", resp.StatusCode)
	}

	var oe oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&oe); err != nil {
		return core.VideoMetadata{}, fmt.Errorf("decode oembed response: %w", err)
	}

	return core.VideoMetadata{
		VideoID:      videoID,
		Title:        oe.Title,
		Author:       oe.AuthorName,
		URL:          videoURL,
		ThumbnailURL: oe.ThumbnailURL,
	}, nil
}

type timedtextDoc struct {
	Texts []timedtextEntry `xml:"text"`
}

type timedtextEntry struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Body  string `xml:",chardata"`
}

func (s *YouTubeSource) fetchTranscript(ctx context.Context, videoID string) ([]core.TranscriptEntry, error) {
	endpoint := "https://video.google.com/timedtext?lang=en&v=" + url.QueryEscape(videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("no transcript available")
	}

	var doc timedtextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	entries := make([]core.TranscriptEntry, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		start, err := strconv.ParseFloat(t.Start, 64)
		if err != nil {
			continue
		}
		dur, _ := strconv.ParseFloat(t.Dur, 64)
		text := strings.TrimSpace(html.UnescapeString(t.Body))
		if text == "" {
			continue
		}
		entries = append(entries, core.TranscriptEntry{Start: start, Duration: dur, Text: text})
	}
	return entries, nil
}
