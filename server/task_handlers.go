package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"videorag/core"
)

type taskListResponse struct {
	Tasks      []core.TaskRecord `json:"tasks"`
	TotalCount int               `json:"total_count"`
}

func (s *Server) handleListTasks(c *gin.Context) {
	includeCompleted := true
	if v := c.Query("include_completed"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "include_completed must be a boolean"})
			return
		}
		includeCompleted = parsed
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	tasks := s.registry.GetAllTasks(includeCompleted, limit)
	c.JSON(http.StatusOK, taskListResponse{Tasks: tasks, TotalCount: len(tasks)})
}

func (s *Server) handleTaskStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.GetTaskStats())
}

func (s *Server) handleRunningTasks(c *gin.Context) {
	tasks := s.registry.GetRunningTasks()
	c.JSON(http.StatusOK, taskListResponse{Tasks: tasks, TotalCount: len(tasks)})
}

func (s *Server) handlePendingTasks(c *gin.Context) {
	tasks := s.registry.GetPendingTasks()
	c.JSON(http.StatusOK, taskListResponse{Tasks: tasks, TotalCount: len(tasks)})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task := s.registry.GetTask(c.Param("task_id"))
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleCleanupTasks(c *gin.Context) {
	days := s.cfg.TaskCleanupDays
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a non-negative integer"})
			return
		}
		days = parsed
	}

	removed := s.registry.CleanupOldTasks(days)
	c.JSON(http.StatusOK, gin.H{"removed": removed, "days": days})
}
