package cmd

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"shortsflow/pkg/config"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear queued workflow runs",
	Long:  `Remove runs that are queued or scheduled but not yet picked up by the worker.`,
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func newQueueClient(cfg *config.Config) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Worker.RedisAddr})
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.Worker.RedisAddr})
	defer func() { _ = inspector.Close() }()

	pending, err := inspector.DeleteAllPendingTasks(cfg.Worker.Queue)
	if err != nil {
		return fmt.Errorf("clear pending runs: %w", err)
	}
	scheduled, err := inspector.DeleteAllScheduledTasks(cfg.Worker.Queue)
	if err != nil {
		return fmt.Errorf("clear scheduled runs: %w", err)
	}

	fmt.Printf("Cleared %d queued task(s)\n", pending+scheduled)
	return nil
}
