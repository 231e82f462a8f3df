package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shortsflow/internal/app"
	"shortsflow/pkg/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "shortsflow",
	Short: "Generate, render and publish short-form videos",
	Long: `Shortsflow turns a channel profile into short-form videos: LLM ideas and
timed scripts, ElevenLabs narration, Creatomate template renders, and optional
YouTube upload. Every step is logged per channel.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogger()
	}
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func setupLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func loadService(cmd *cobra.Command) (*app.Service, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, err
	}
	return app.BuildService(cmd.Context(), cfg)
}
