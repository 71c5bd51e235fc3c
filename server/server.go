package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"videorag/config"
	"videorag/core"
	"videorag/logging"
	"videorag/processors"
	"videorag/search"
	"videorag/storage"
)

// Server wires the HTTP surface to the core components. Handlers stay thin:
// they validate input, call one collaborator, translate the outcome.
type Server struct {
	cfg          *config.Config
	registry     *core.TaskRegistry
	orchestrator *processors.IngestionOrchestrator
	strategies   *processors.StrategyRegistry
	searcher     *search.Service
	vectors      storage.VectorStore
	graph        storage.GraphStore
	log          *logging.Logger
}

func New(
	cfg *config.Config,
	registry *core.TaskRegistry,
	orchestrator *processors.IngestionOrchestrator,
	strategies *processors.StrategyRegistry,
	searcher *search.Service,
	vectors storage.VectorStore,
	graph storage.GraphStore,
	log *logging.Logger,
) *Server {
	return &Server{
		cfg:          cfg,
		registry:     registry,
		orchestrator: orchestrator,
		strategies:   strategies,
		searcher:     searcher,
		vectors:      vectors,
		graph:        graph,
		log:          log.With("component", "server"),
	}
}

// Router builds the gin engine with every route attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)

	tasks := router.Group("/tasks")
	{
		tasks.GET("", s.handleListTasks)
		tasks.GET("/stats", s.handleTaskStats)
		tasks.GET("/running", s.handleRunningTasks)
		tasks.GET("/pending", s.handlePendingTasks)
		tasks.GET("/:task_id", s.handleGetTask)
		tasks.POST("/cleanup", s.handleCleanupTasks)
	}

	temporal := router.Group("/temporal")
	{
		temporal.POST("/ingest-video", s.handleIngestVideo)
		temporal.POST("/search", s.handleTemporalSearch)
		temporal.POST("/search-entity", s.handleEntitySearch)
		temporal.POST("/search-topic", s.handleTopicSearch)
		temporal.GET("/video-timeline/:video_id", s.handleVideoTimeline)
		temporal.GET("/video-info/:video_id", s.handleVideoInfo)
	}

	router.POST("/ingest", s.handleIngest)

	router.GET("/graph", s.handleWholeGraph)
	router.GET("/entities", s.handleListEntities)
	router.GET("/entities/:name/facts", s.handleEntityFacts)

	router.GET("/vector/status", s.handleVectorStatus)
	router.DELETE("/vector/documents", s.handleVectorDeleteAll)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
