package core

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"videorag/logging"
)

// TaskStatus is the lifecycle state of a tracked background task.
// Transitions only move forward: pending -> running -> completed|failed.
// Cancelled is part of the taxonomy but no current flow transitions into it.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// TaskRecord describes one tracked background task.
type TaskRecord struct {
	TaskID       string                 `json:"task_id"`
	Command      []string               `json:"command"`
	Status       TaskStatus             `json:"status"`
	CreatedAt    time.Time              `json:"created_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Progress     string                 `json:"progress,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// TaskStats summarizes the registry contents.
type TaskStats struct {
	TotalTasks     int     `json:"total_tasks"`
	RunningTasks   int     `json:"running_tasks"`
	PendingTasks   int     `json:"pending_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	FailedTasks    int     `json:"failed_tasks"`
	SuccessRate    float64 `json:"success_rate"`
}

// TaskRegistry tracks background tasks under a single mutex. The map is
// owned exclusively by the registry; queries return copies so callers can
// never observe a record mid-update. Construct one per process and inject it
// wherever tasks are created or polled.
type TaskRegistry struct {
	mu    sync.Mutex
	tasks map[string]*TaskRecord
	log   *logging.Logger
	now   func() time.Time
}

func NewTaskRegistry(log *logging.Logger) *TaskRegistry {
	return &TaskRegistry{
		tasks: make(map[string]*TaskRecord),
		log:   log.With("component", "task_registry"),
		now:   time.Now,
	}
}

// AddTask registers a new pending task and returns its id. Never fails.
func (r *TaskRegistry) AddTask(command []string, metadata map[string]interface{}) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	r.tasks[id] = &TaskRecord{
		TaskID:    id,
		Command:   append([]string(nil), command...),
		Status:    TaskPending,
		CreatedAt: r.now(),
		Metadata:  metadata,
	}
	r.log.Info("task added", "task_id", id, "command", command)
	return id
}

// StartTask marks a task running. Returns false when the id is unknown.
func (r *TaskRegistry) StartTask(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return false
	}
	now := r.now()
	t.Status = TaskRunning
	t.StartedAt = &now
	r.log.Info("task started", "task_id", taskID)
	return true
}

// UpdateProgress overwrites the progress text of a running task. Returns
// false when the id is unknown; no status change either way.
func (r *TaskRegistry) UpdateProgress(taskID, progress string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return false
	}
	t.Progress = progress
	return true
}

// CompleteTask moves a task to completed or failed and stamps completed_at.
// The error message is recorded only on failure.
func (r *TaskRegistry) CompleteTask(taskID string, success bool, errorMessage string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return false
	}
	now := r.now()
	t.CompletedAt = &now
	if success {
		t.Status = TaskCompleted
		r.log.Info("task completed", "task_id", taskID)
	} else {
		t.Status = TaskFailed
		t.ErrorMessage = errorMessage
		r.log.Error("task failed", "task_id", taskID, "error", errorMessage)
	}
	return true
}

// GetTask returns a copy of the record, or nil when the id is unknown.
func (r *TaskRegistry) GetTask(taskID string) *TaskRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return nil
	}
	return copyRecord(t)
}

// GetAllTasks returns tasks newest-created-first. When includeCompleted is
// false, completed and failed tasks are excluded. limit <= 0 means no limit.
func (r *TaskRegistry) GetAllTasks(includeCompleted bool, limit int) []TaskRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TaskRecord, 0, len(r.tasks))
	for _, t := range r.tasks {
		if !includeCompleted && (t.Status == TaskCompleted || t.Status == TaskFailed) {
			continue
		}
		out = append(out, *copyRecord(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GetRunningTasks returns every task currently in the running state.
func (r *TaskRegistry) GetRunningTasks() []TaskRecord {
	return r.filterByStatus(TaskRunning)
}

// GetPendingTasks returns every task still pending.
func (r *TaskRegistry) GetPendingTasks() []TaskRecord {
	return r.filterByStatus(TaskPending)
}

func (r *TaskRegistry) filterByStatus(status TaskStatus) []TaskRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []TaskRecord
	for _, t := range r.tasks {
		if t.Status == status {
			out = append(out, *copyRecord(t))
		}
	}
	return out
}

// GetTaskStats reports registry counts. SuccessRate is completed/total*100,
// zero when the registry is empty.
func (r *TaskRegistry) GetTaskStats() TaskStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := TaskStats{TotalTasks: len(r.tasks)}
	for _, t := range r.tasks {
		switch t.Status {
		case TaskRunning:
			stats.RunningTasks++
		case TaskPending:
			stats.PendingTasks++
		case TaskCompleted:
			stats.CompletedTasks++
		case TaskFailed:
			stats.FailedTasks++
		}
	}
	if stats.TotalTasks > 0 {
		stats.SuccessRate = float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100
	}
	return stats
}

// CleanupOldTasks removes completed/failed tasks whose completed_at is older
// than now minus the given number of days and returns how many were removed.
// Records without completed_at are never eligible, whatever their age.
func (r *TaskRegistry) CleanupOldTasks(days int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().AddDate(0, 0, -days)
	removed := 0
	for id, t := range r.tasks {
		if t.Status != TaskCompleted && t.Status != TaskFailed {
			continue
		}
		if t.CompletedAt == nil || !t.CompletedAt.Before(cutoff) {
			continue
		}
		delete(r.tasks, id)
		removed++
	}
	r.log.Info("cleaned up old tasks", "removed", removed, "days", days)
	return removed
}

func copyRecord(t *TaskRecord) *TaskRecord {
	c := *t
	c.Command = append([]string(nil), t.Command...)
	if t.StartedAt != nil {
		started := *t.StartedAt
		c.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		c.CompletedAt = &completed
	}
	if t.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
