package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"videorag/core"
)

type ingestVideoRequest struct {
	VideoIDs []string `json:"video_ids" binding:"required"`
}

type ingestVideoResponse struct {
	Status            string   `json:"status"`
	Message           string   `json:"message"`
	VideoID           string   `json:"video_id"`
	SegmentsProcessed int      `json:"segments_processed"`
	SegmentsStored    int      `json:"segments_stored"`
	EntitiesFound     []string `json:"entities_found"`
	Duration          float64  `json:"duration"`
	TaskID            string   `json:"task_id,omitempty"`
}

func (s *Server) handleIngestVideo(c *gin.Context) {
	var req ingestVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.VideoIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video_ids must not be empty"})
		return
	}

	first, taskID, err := s.orchestrator.IngestVideos(c.Request.Context(), req.VideoIDs)
	if err != nil {
		s.log.Error("video ingest failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	message := "video processed"
	if taskID != "" {
		message = "first video processed, remaining videos queued"
	}
	c.JSON(http.StatusOK, ingestVideoResponse{
		Status:            "ok",
		Message:           message,
		VideoID:           first.VideoID,
		SegmentsProcessed: first.SegmentsProcessed,
		SegmentsStored:    first.SegmentsStored,
		EntitiesFound:     first.EntitiesFound,
		Duration:          first.Duration,
		TaskID:            taskID,
	})
}

type searchResponse struct {
	Query        string                      `json:"query"`
	ResultsCount int                         `json:"results_count"`
	Results      []core.TemporalSearchResult `json:"results"`
}

func (s *Server) handleTemporalSearch(c *gin.Context) {
	var query core.TemporalSearchQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must not be empty"})
		return
	}

	results := s.searcher.Search(c.Request.Context(), query)
	c.JSON(http.StatusOK, searchResponse{
		Query:        query.Query,
		ResultsCount: len(results),
		Results:      results,
	})
}

type entitySearchRequest struct {
	Entity     string   `json:"entity" binding:"required"`
	VideoIDs   []string `json:"video_ids,omitempty"`
	MaxResults int      `json:"max_results"`
}

func (s *Server) handleEntitySearch(c *gin.Context) {
	var req entitySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := s.searcher.SearchByEntity(c.Request.Context(), req.Entity, req.VideoIDs, req.MaxResults)
	c.JSON(http.StatusOK, searchResponse{
		Query:        req.Entity,
		ResultsCount: len(results),
		Results:      results,
	})
}

type topicSearchRequest struct {
	Topic      string   `json:"topic" binding:"required"`
	VideoIDs   []string `json:"video_ids,omitempty"`
	MaxResults int      `json:"max_results"`
}

func (s *Server) handleTopicSearch(c *gin.Context) {
	var req topicSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := s.searcher.SearchByTopic(c.Request.Context(), req.Topic, req.VideoIDs, req.MaxResults)
	c.JSON(http.StatusOK, searchResponse{
		Query:        req.Topic,
		ResultsCount: len(results),
		Results:      results,
	})
}

func (s *Server) handleVideoTimeline(c *gin.Context) {
	videoID := c.Param("video_id")
	timeline := s.searcher.VideoTimeline(c.Request.Context(), videoID)
	if len(timeline) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no segments found for video " + videoID})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"video_id":      videoID,
		"segment_count": len(timeline),
		"timeline":      timeline,
	})
}

func (s *Server) handleVideoInfo(c *gin.Context) {
	videoID := c.Param("video_id")
	info, err := s.orchestrator.VideoInfo(c.Request.Context(), videoID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

type ingestRequest struct {
	Videos  []string `json:"videos,omitempty"`
	Twitter []string `json:"twitter,omitempty"`
	IG      []string `json:"ig,omitempty"`
}

func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID, err := s.strategies.Submit(map[string][]string{
		"youtube":   req.Videos,
		"twitter":   req.Twitter,
		"instagram": req.IG,
	})
	if err != nil {
		status := http.StatusBadRequest
		if taskID != "" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error(), "task_id": taskID})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "task_id": taskID})
}
