package tasks

import "github.com/hibiken/asynq"

// TaskEnqueuer is implemented by asynq.Client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
