package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleWholeGraph(c *gin.Context) {
	if s.graph == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "graph store is not configured"})
		return
	}
	graph, err := s.graph.GetWholeGraph(c.Request.Context())
	if err != nil {
		s.log.Error("graph read failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, graph)
}

func (s *Server) handleListEntities(c *gin.Context) {
	if s.graph == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "graph store is not configured"})
		return
	}
	entities, err := s.graph.GetAllEntities(c.Request.Context())
	if err != nil {
		s.log.Error("entity listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": entities, "count": len(entities)})
}

func (s *Server) handleEntityFacts(c *gin.Context) {
	if s.graph == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "graph store is not configured"})
		return
	}
	name := c.Param("name")
	facts, err := s.graph.GetFactsForEntity(c.Request.Context(), name)
	if err != nil {
		s.log.Error("fact lookup failed", "entity", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity": name, "facts": facts, "count": len(facts)})
}

func (s *Server) handleVectorStatus(c *gin.Context) {
	count, err := s.vectors.Count(c.Request.Context())
	if err != nil {
		s.log.Error("vector count failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"backend":        s.cfg.VectorBackend,
		"document_count": count,
	})
}

func (s *Server) handleVectorDeleteAll(c *gin.Context) {
	if err := s.vectors.DeleteAll(c.Request.Context()); err != nil {
		s.log.Error("vector wipe failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
