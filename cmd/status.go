package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"shortsflow/internal/model"
	"shortsflow/internal/workflow"
	"shortsflow/pkg/config"
	"shortsflow/pkg/tasks"
)

var (
	statusChannelID int64
	logsOffset      int
	logsLimit       int
	statsAsync      bool
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(18)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what a channel's workflow is doing",
	RunE:  runStatus,
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show a channel's workflow log, newest first",
	RunE:  runLogs,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Refresh view counts for a channel's uploaded videos",
	RunE:  runStats,
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, logsCmd, statsCmd} {
		c.Flags().Int64VarP(&statusChannelID, "channel", "c", 0, "Channel id")
		_ = c.MarkFlagRequired("channel")
		rootCmd.AddCommand(c)
	}
	logsCmd.Flags().IntVar(&logsOffset, "offset", 0, "Entries to skip")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 50, "Maximum entries")
	statsCmd.Flags().BoolVar(&statsAsync, "async", false, "Queue the sync for the background worker")
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	st, err := svc.Engine().Status(cmd.Context(), statusChannelID)
	if err != nil {
		return err
	}

	state := idleStyle.Render(st.State)
	if st.State == workflow.StateRunning {
		state = runningStyle.Render(st.State)
	}

	fmt.Println(titleStyle.Render(st.ChannelName))
	fmt.Println(labelStyle.Render("State") + state)
	if st.CurrentStep != "" {
		fmt.Println(labelStyle.Render("Last step") + string(st.CurrentStep))
	}
	fmt.Println(labelStyle.Render("In progress") + fmt.Sprint(st.InProgressVideos))
	fmt.Println(labelStyle.Render("Uploaded videos") + fmt.Sprint(st.TotalVideos))
	fmt.Println(labelStyle.Render("Total views") + fmt.Sprint(st.TotalViews))
	fmt.Println()

	printLogs(st.RecentLogs)
	return nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	logs, err := svc.Engine().Logs(cmd.Context(), statusChannelID, logsOffset, logsLimit)
	if err != nil {
		return err
	}

	printLogs(logs)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsAsync {
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return err
		}
		return enqueueStats(cfg, statusChannelID)
	}

	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	views, err := svc.Engine().SyncStats(cmd.Context(), statusChannelID)
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Total views: %d", views)))
	return nil
}

func enqueueStats(cfg *config.Config, channelID int64) error {
	client := newQueueClient(cfg)
	defer func() { _ = client.Close() }()

	info, err := tasks.EnqueueSyncStats(client, channelID, cfg.Worker.Queue, 0)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Stats sync queued: " + info.ID))
	return nil
}

func printLogs(logs []model.WorkflowLogEntry) {
	if len(logs) == 0 {
		fmt.Println(infoStyle.Render("No log entries"))
		return
	}

	fmt.Println(listTable(logHeaders, logRows(logs)))
}

var logHeaders = []string{"TIME", "STEP", "STATUS", "VIDEO", "DURATION", "MESSAGE"}

func logRows(logs []model.WorkflowLogEntry) [][]string {
	rows := make([][]string, 0, len(logs))
	for _, e := range logs {
		video := "-"
		if e.VideoID != nil {
			video = fmt.Sprint(*e.VideoID)
		}
		msg := e.Message
		if e.Error != "" {
			msg += ": " + e.Error
		}
		rows = append(rows, []string{
			e.CreatedAt.Format("2006-01-02 15:04:05"), string(e.Step), string(e.Status), video, e.Duration().String(), msg,
		})
	}
	return rows
}
