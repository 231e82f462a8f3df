package cmd

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shortsflow/internal/workflow"
	"shortsflow/pkg/config"
	"shortsflow/pkg/tasks"
)

var (
	runChannelID int64
	runMode      string
	runCount     int
	runAsync     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full workflow for a channel",
	Long: `Generate (or reuse) ideas and take each through script, narration, render
and, for auto-upload channels, YouTube upload. With --async the run is queued
for the worker and the command returns immediately.`,
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().Int64VarP(&runChannelID, "channel", "c", 0, "Channel id")
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "", "generate (new ideas) or reuse (pending ideas)")
	runCmd.Flags().IntVarP(&runCount, "count", "n", 0, "Number of ideas to process")
	runCmd.Flags().BoolVar(&runAsync, "async", false, "Queue the run for the background worker")
	_ = runCmd.MarkFlagRequired("channel")
	rootCmd.AddCommand(runCmd)
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	mode := runMode
	if mode == "" {
		mode = cfg.Workflow.Mode
	}
	count := runCount
	if count <= 0 {
		count = cfg.Workflow.DefaultIdeas
	}
	runID := uuid.NewString()

	if runAsync {
		return enqueueRun(cfg, tasks.RunWorkflowPayload{ChannelID: runChannelID, Mode: mode, Count: count, RunID: runID})
	}

	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	var report *workflow.RunReport
	err = runWithSpinner(fmt.Sprintf("Processing %d idea(s)", count), func() error {
		var runErr error
		report, runErr = svc.Engine().RunBatch(ctx, runChannelID, mode, count, runID)
		return runErr
	})
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

func enqueueRun(cfg *config.Config, p tasks.RunWorkflowPayload) error {
	client := newQueueClient(cfg)
	defer func() { _ = client.Close() }()

	info, err := tasks.EnqueueRun(client, p, cfg.Worker.Queue)
	if err != nil {
		return fmt.Errorf("failed to queue run: %w", err)
	}

	slog.Debug("Run queued", "task_id", info.ID, "queue", info.Queue)
	fmt.Println(successStyle.Render("✓ Run queued: " + info.ID))
	fmt.Println(infoStyle.Render(fmt.Sprintf("  Follow progress with: shortsflow status --channel %d", p.ChannelID)))
	return nil
}

func printReport(report *workflow.RunReport) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("Run %s", report.RunID)))

	for _, o := range report.Outcomes {
		switch {
		case o.FailedStep == "":
			fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s → video %d", o.Title, o.VideoID)))
		case o.VideoID != 0:
			fmt.Println(warnStyle.Render(fmt.Sprintf("! %s → video %d, %s failed: %v", o.Title, o.VideoID, o.FailedStep, o.Err)))
		default:
			fmt.Println(authErrorStyle.Render(fmt.Sprintf("✗ %s: %s failed: %v", o.Title, o.FailedStep, o.Err)))
		}
	}

	fmt.Printf("\n%d video(s), %d failed idea(s)\n", len(report.Videos), report.Failed())
}
