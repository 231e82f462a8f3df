package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"shortsflow/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued workflow runs",
	Long:  `Run the background worker that executes runs queued with "run --async". Runs execute one at a time.`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	cfg := svc.Config()
	redis := asynq.RedisClientOpt{Addr: cfg.Worker.RedisAddr}

	client := asynq.NewClient(redis)
	defer func() { _ = client.Close() }()

	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{cfg.Worker.Queue: 1},
		BaseContext: cmd.Context,
		Logger:      slogLogger{},
	})

	mux := asynq.NewServeMux()
	worker.NewTaskHandler(svc.Engine(), client, cfg.Worker.Queue).Register(mux)

	slog.Info("Worker starting", "redis", cfg.Worker.RedisAddr, "queue", cfg.Worker.Queue)
	if err := srv.Start(mux); err != nil {
		return err
	}

	<-cmd.Context().Done()
	slog.Info("Shutting down...")
	srv.Shutdown()
	return nil
}

// slogLogger routes asynq's own logging through slog.
type slogLogger struct{}

func (slogLogger) Debug(args ...any) { slog.Debug(fmt.Sprint(args...)) }
func (slogLogger) Info(args ...any) { slog.Info(fmt.Sprint(args...)) }
func (slogLogger) Warn(args ...any) { slog.Warn(fmt.Sprint(args...)) }
func (slogLogger) Error(args ...any) { slog.Error(fmt.Sprint(args...)) }

func (slogLogger) Fatal(args ...any) {
	slog.Error(fmt.Sprint(args...))
	os.Exit(1)
}
