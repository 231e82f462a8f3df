package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeRunWorkflow = "workflow:run"
	TypeSyncStats   = "stats:sync"
)

type RunWorkflowPayload struct {
	ChannelID int64
	Mode      string
	Count     int
	RunID     string
}

func NewRunWorkflowTask(p RunWorkflowPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRunWorkflow, payload), nil
}

type SyncStatsPayload struct {
	ChannelID int64
}

func NewSyncStatsTask(channelID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(SyncStatsPayload{ChannelID: channelID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSyncStats, payload), nil
}

// EnqueueRun queues a batch run. Runs are never retried automatically and
// the run id doubles as the task id, so a run id is queued at most once.
func EnqueueRun(e TaskEnqueuer, p RunWorkflowPayload, queue string) (*asynq.TaskInfo, error) {
	task, err := NewRunWorkflowTask(p)
	if err != nil {
		return nil, fmt.Errorf("failed to create run task: %w", err)
	}

	opts := []asynq.Option{
		asynq.MaxRetry(0),
		asynq.TaskID(p.RunID),
		asynq.Timeout(6 * time.Hour),
	}
	if queue != "" {
		opts = append(opts, asynq.Queue(queue))
	}

	return e.Enqueue(task, opts...)
}

func EnqueueSyncStats(e TaskEnqueuer, channelID int64, queue string, delay time.Duration) (*asynq.TaskInfo, error) {
	task, err := NewSyncStatsTask(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats task: %w", err)
	}

	opts := []asynq.Option{asynq.MaxRetry(3)}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	if queue != "" {
		opts = append(opts, asynq.Queue(queue))
	}

	return e.Enqueue(task, opts...)
}
