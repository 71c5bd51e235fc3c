package processors

import (
	"context"
	"fmt"

	"videorag/core"
	"videorag/logging"
	"videorag/sources"
)

// IngestStrategy handles one content source kind for the generic ingest
// endpoint. Strategies are selected by source name from the registry map.
type IngestStrategy interface {
	Ingest(ctx context.Context, items []string) error
}

// YouTubeStrategy resolves URLs or bare ids to video ids and runs each
// through the full pipeline. Per-video failures are logged and skipped.
type YouTubeStrategy struct {
	orchestrator *IngestionOrchestrator
	log          *logging.Logger
}

func (s *YouTubeStrategy) Ingest(ctx context.Context, items []string) error {
	for _, item := range items {
		videoID := sources.ExtractYouTubeID(item)
		if _, err := s.orchestrator.ProcessVideo(ctx, videoID); err != nil {
			s.log.Warn("youtube item failed, continuing", "item", item, "error", err)
		}
	}
	return nil
}

// unsupportedStrategy keeps a source kind addressable before its fetcher
// exists.
type unsupportedStrategy struct {
	kind string
}

func (s unsupportedStrategy) Ingest(context.Context, []string) error {
	return fmt.Errorf("source %q is not supported yet", s.kind)
}

// StrategyRegistry dispatches ingest batches to per-source strategies and
// tracks each batch as a task.
type StrategyRegistry struct {
	strategies map[string]IngestStrategy
	registry   *core.TaskRegistry
	runner     core.Runner
	log        *logging.Logger
}

func NewStrategyRegistry(orchestrator *IngestionOrchestrator, registry *core.TaskRegistry, runner core.Runner, log *logging.Logger) *StrategyRegistry {
	return &StrategyRegistry{
		strategies: map[string]IngestStrategy{
			"youtube":   &YouTubeStrategy{orchestrator: orchestrator, log: log.With("strategy", "youtube")},
			"twitter":   unsupportedStrategy{kind: "twitter"},
			"instagram": unsupportedStrategy{kind: "instagram"},
		},
		registry: registry,
		runner:   runner,
		log:      log.With("component", "strategy_registry"),
	}
}

// Submit queues a background task running every non-empty batch through its
// strategy. Returns the task id for polling.
func (r *StrategyRegistry) Submit(batches map[string][]string) (string, error) {
	command := []string{"ingest_worker"}
	total := 0
	for kind, items := range batches {
		if len(items) == 0 {
			continue
		}
		if _, ok := r.strategies[kind]; !ok {
			return "", fmt.Errorf("unknown source kind %q", kind)
		}
		command = append(command, "--"+kind)
		command = append(command, items...)
		total += len(items)
	}
	if total == 0 {
		return "", fmt.Errorf("nothing to ingest")
	}

	metadata := map[string]interface{}{"request_type": "ingest"}
	for kind, items := range batches {
		if len(items) > 0 {
			metadata[kind] = items
		}
	}
	taskID := r.registry.AddTask(command, metadata)

	if !r.runner.Submit(func(ctx context.Context) {
		r.run(ctx, taskID, batches)
	}) {
		r.registry.CompleteTask(taskID, false, "background runner rejected the job")
		return taskID, fmt.Errorf("background runner rejected the job")
	}
	return taskID, nil
}

func (r *StrategyRegistry) run(ctx context.Context, taskID string, batches map[string][]string) {
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("ingest worker failed: %v", rec)
			r.registry.CompleteTask(taskID, false, msg)
			r.log.Error("ingest worker panicked", "task_id", taskID, "panic", rec)
		}
	}()

	r.registry.StartTask(taskID)
	r.registry.UpdateProgress(taskID, "Starting ingest worker")

	var failures []string
	for kind, items := range batches {
		if len(items) == 0 {
			continue
		}
		r.registry.UpdateProgress(taskID, fmt.Sprintf("Ingesting %d %s items", len(items), kind))
		if err := r.strategies[kind].Ingest(ctx, items); err != nil {
			failures = append(failures, err.Error())
			r.log.Warn("strategy failed", "kind", kind, "error", err)
		}
	}

	if len(failures) > 0 {
		msg := fmt.Sprintf("ingest finished with errors: %v", failures)
		r.registry.UpdateProgress(taskID, msg)
		r.registry.CompleteTask(taskID, false, msg)
		return
	}
	r.registry.UpdateProgress(taskID, "Ingest worker completed")
	r.registry.CompleteTask(taskID, true, "")
}
