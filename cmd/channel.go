package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"shortsflow/internal/model"
)

var (
	channelInteractive bool
	channelInput       model.Channel
	channelKeywords    []string
)

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Manage channel profiles",
}

var channelCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a channel profile",
	Long:  `Create a channel from flags, or fill in a form with --interactive.`,
	RunE:  runChannelCreate,
}

var channelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List channel profiles",
	RunE:  runChannelList,
}

func init() {
	f := channelCreateCmd.Flags()
	f.BoolVarP(&channelInteractive, "interactive", "i", false, "Fill in the channel with a form")
	f.StringVar(&channelInput.Name, "name", "", "Channel name")
	f.StringVar(&channelInput.Topic, "topic", "", "Topic ideas are generated for")
	f.StringVar(&channelInput.Category, "category", "", "Category")
	f.StringVar(&channelInput.Description, "description", "", "Description")
	f.StringVar(&channelInput.TargetAudience, "audience", "", "Target audience")
	f.StringVar(&channelInput.ContentStyle, "style", "", "Content style")
	f.StringSliceVar(&channelKeywords, "keywords", nil, "Comma separated keywords")
	f.StringVar(&channelInput.TemplateID, "template", "", "Creatomate template id")
	f.IntVar(&channelInput.VideoDuration, "duration", 60, "Target video duration in seconds")
	f.BoolVar(&channelInput.AutoUpload, "auto-upload", false, "Upload videos after rendering")
	f.StringVar(&channelInput.PrivacyStatus, "privacy", "private", "YouTube privacy: private, unlisted or public")

	channelCmd.AddCommand(channelCreateCmd)
	channelCmd.AddCommand(channelListCmd)
	rootCmd.AddCommand(channelCmd)
}

func runChannelCreate(cmd *cobra.Command, args []string) error {
	ch := channelInput
	ch.Keywords = channelKeywords

	if channelInteractive {
		if err := channelForm(&ch); err != nil {
			return err
		}
	}
	if ch.Name == "" || ch.Topic == "" {
		return fmt.Errorf("--name and --topic are required")
	}

	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if err := svc.Store().CreateChannel(cmd.Context(), &ch); err != nil {
		return err
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Created channel %d: %s", ch.ID, ch.Name)))
	if ch.TemplateID == "" {
		fmt.Println(warnStyle.Render("  No render template set; rendering will fail until one is configured"))
	}
	return nil
}

func channelForm(ch *model.Channel) error {
	keywords := strings.Join(ch.Keywords, ", ")
	duration := strconv.Itoa(ch.VideoDuration)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(&ch.Name).Validate(required("Name")),
			huh.NewInput().Title("Topic").Description("What the ideas are about").Value(&ch.Topic).Validate(required("Topic")),
			huh.NewInput().Title("Category").Value(&ch.Category),
			huh.NewText().Title("Description").Value(&ch.Description),
		),
		huh.NewGroup(
			huh.NewInput().Title("Target audience").Value(&ch.TargetAudience),
			huh.NewInput().Title("Content style").Description("e.g. upbeat, calm, educational").Value(&ch.ContentStyle),
			huh.NewInput().Title("Keywords").Description("Comma separated").Value(&keywords),
		),
		huh.NewGroup(
			huh.NewInput().Title("Creatomate template id").Value(&ch.TemplateID),
			huh.NewInput().Title("Video duration (seconds)").Value(&duration).Validate(positiveInt),
			huh.NewConfirm().Title("Upload automatically?").Value(&ch.AutoUpload),
			huh.NewSelect[string]().
				Title("Privacy").
				Options(
					huh.NewOption("Private", "private"),
					huh.NewOption("Unlisted", "unlisted"),
					huh.NewOption("Public", "public"),
				).
				Value(&ch.PrivacyStatus),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	ch.Keywords = splitKeywords(keywords)
	ch.VideoDuration, _ = strconv.Atoi(duration)
	return nil
}

func runChannelList(cmd *cobra.Command, args []string) error {
	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	channels, err := svc.Store().ListChannels(cmd.Context())
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(channels))
	for _, ch := range channels {
		rows = append(rows, []string{
			fmt.Sprint(ch.ID), ch.Name, ch.Topic, ch.TemplateID,
			fmt.Sprint(ch.AutoUpload), fmt.Sprint(ch.TotalVideos), fmt.Sprint(ch.TotalViews),
		})
	}
	fmt.Println(listTable([]string{"ID", "NAME", "TOPIC", "TEMPLATE", "AUTO UPLOAD", "VIDEOS", "VIEWS"}, rows))
	return nil
}

func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}
