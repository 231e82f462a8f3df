package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shortsflow/internal/model"
)

var (
	stepChannelID  int64
	stepCount      int
	stepIdeaStatus string
	stepAudioRef   string
	stepListLimit  int
)

var ideasCmd = &cobra.Command{
	Use:   "ideas",
	Short: "Generate or list video ideas",
}

var ideasGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate ideas for a channel",
	RunE:  runIdeasGenerate,
}

var ideasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a channel's ideas",
	RunE:  runIdeasList,
}

var scriptCmd = &cobra.Command{
	Use:   "script <idea-id>",
	Short: "Write a timed script for an idea",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

var audioCmd = &cobra.Command{
	Use:   "audio <idea-id>",
	Short: "Synthesize narration for a scripted idea",
	Args:  cobra.ExactArgs(1),
	RunE:  runAudio,
}

var audioVoicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List available ElevenLabs voices",
	Args:  cobra.NoArgs,
	RunE:  runVoices,
}

var renderCmd = &cobra.Command{
	Use:   "render <idea-id>",
	Short: "Render a video for a scripted idea",
	Long: `Render a video from an idea's segments and narration. Without --audio the
narration is synthesized first.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <video-id>",
	Short: "Upload a rendered video to YouTube",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

func init() {
	ideasGenerateCmd.Flags().Int64VarP(&stepChannelID, "channel", "c", 0, "Channel id")
	ideasGenerateCmd.Flags().IntVarP(&stepCount, "count", "n", 5, "Number of ideas")
	_ = ideasGenerateCmd.MarkFlagRequired("channel")

	ideasListCmd.Flags().Int64VarP(&stepChannelID, "channel", "c", 0, "Channel id")
	ideasListCmd.Flags().StringVarP(&stepIdeaStatus, "status", "s", string(model.IdeaPending), "Idea status")
	ideasListCmd.Flags().IntVar(&stepListLimit, "limit", 20, "Maximum ideas to list")
	_ = ideasListCmd.MarkFlagRequired("channel")

	renderCmd.Flags().StringVar(&stepAudioRef, "audio", "", "Existing narration file or URL")

	ideasCmd.AddCommand(ideasGenerateCmd)
	ideasCmd.AddCommand(ideasListCmd)
	audioCmd.AddCommand(audioVoicesCmd)

	rootCmd.AddCommand(ideasCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(audioCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(uploadCmd)
}

func runIdeasGenerate(cmd *cobra.Command, args []string) error {
	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	ideas, err := svc.Engine().GenerateIdeas(cmd.Context(), stepChannelID, stepCount)
	if err != nil {
		return err
	}

	printIdeas(ideas)
	return nil
}

func runIdeasList(cmd *cobra.Command, args []string) error {
	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	ideas, err := svc.Store().ListIdeas(cmd.Context(), stepChannelID, model.IdeaStatus(stepIdeaStatus), stepListLimit)
	if err != nil {
		return err
	}

	printIdeas(ideas)
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	idea, err := svc.Engine().CreateScript(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(idea.Title))
	for _, seg := range idea.Segments {
		fmt.Printf("%5.1fs - %5.1fs  %s\n", seg.Start, seg.End, seg.Text)
	}
	return nil
}

func runAudio(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	path, err := svc.Engine().GenerateAudio(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓ Narration saved to " + path))
	return nil
}

func runVoices(cmd *cobra.Command, args []string) error {
	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	voices, err := svc.Speech().Voices(cmd.Context())
	if err != nil {
		return err
	}

	current := svc.Speech().VoiceID()
	rows := make([][]string, 0, len(voices))
	for _, v := range voices {
		marker := ""
		if v.ID == current {
			marker = "*"
		}
		rows = append(rows, []string{v.ID, v.Name, v.Category, marker})
	}
	fmt.Println(listTable([]string{"ID", "NAME", "CATEGORY", "CURRENT"}, rows))
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	ctx := cmd.Context()
	audio := stepAudioRef
	if audio == "" {
		if audio, err = svc.Engine().GenerateAudio(ctx, id); err != nil {
			return err
		}
	}

	var video *model.Video
	err = runWithSpinner("Rendering video", func() error {
		var renderErr error
		video, renderErr = svc.Engine().RenderVideo(ctx, id, audio)
		return renderErr
	})
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Video %d saved to %s", video.ID, video.VideoPath)))
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	video, err := svc.Engine().UploadVideo(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓ Uploaded: " + video.PublishURL))
	return nil
}

func printIdeas(ideas []model.Idea) {
	if len(ideas) == 0 {
		fmt.Println(infoStyle.Render("No ideas"))
		return
	}

	rows := make([][]string, 0, len(ideas))
	for _, idea := range ideas {
		rows = append(rows, []string{fmt.Sprint(idea.ID), string(idea.Status), idea.Title, idea.Hook})
	}
	fmt.Println(listTable([]string{"ID", "STATUS", "TITLE", "HOOK"}, rows))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
