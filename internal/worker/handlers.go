package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"shortsflow/internal/model"
	"shortsflow/internal/workflow"
	"shortsflow/pkg/tasks"
)

const defaultStatsDelay = time.Hour

// Runner is the part of the workflow engine the worker drives.
type Runner interface {
	RunBatch(ctx context.Context, channelID int64, mode string, count int, runID string) (*workflow.RunReport, error)
	SyncStats(ctx context.Context, channelID int64) (int64, error)
}

type TaskHandler struct {
	runner     Runner
	enqueuer   tasks.TaskEnqueuer
	queue      string
	statsDelay time.Duration
}

func NewTaskHandler(runner Runner, client tasks.TaskEnqueuer, queue string) *TaskHandler {
	return &TaskHandler{
		runner:     runner,
		enqueuer:   client,
		queue:      queue,
		statsDelay: defaultStatsDelay,
	}
}

// Register binds the handlers to their task types.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(tasks.TypeRunWorkflow, h.HandleRunWorkflowTask)
	mux.HandleFunc(tasks.TypeSyncStats, h.HandleSyncStatsTask)
}

func (h *TaskHandler) HandleRunWorkflowTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.RunWorkflowPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	slog.Info("Running workflow", "run_id", p.RunID, "channel_id", p.ChannelID, "mode", p.Mode, "count", p.Count)

	report, err := h.runner.RunBatch(ctx, p.ChannelID, p.Mode, p.Count, p.RunID)
	if err != nil {
		return fmt.Errorf("run %s: %w", p.RunID, err)
	}

	slog.Info("Workflow finished",
		"run_id", report.RunID,
		"videos", len(report.Videos),
		"failed", report.Failed(),
	)

	if uploaded(report.Videos) && h.enqueuer != nil {
		if _, err := tasks.EnqueueSyncStats(h.enqueuer, p.ChannelID, h.queue, h.statsDelay); err != nil {
			slog.Warn("Failed to schedule stats sync", "channel_id", p.ChannelID, "error", err)
		}
	}

	return nil
}

func (h *TaskHandler) HandleSyncStatsTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.SyncStatsPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	views, err := h.runner.SyncStats(ctx, p.ChannelID)
	if err != nil {
		return fmt.Errorf("sync stats for channel %d: %w", p.ChannelID, err)
	}

	slog.Info("Stats synced", "channel_id", p.ChannelID, "total_views", views)
	return nil
}

func uploaded(videos []model.Video) bool {
	for _, v := range videos {
		if v.Status == model.VideoUploaded {
			return true
		}
	}
	return false
}
