package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"shortsflow/internal/distribution/youtube"
	"shortsflow/pkg/config"
)

var (
	authInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	authSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	authErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with external services",
	Long:  `Authenticate with YouTube or check which services have credentials.`,
}

var authYouTubeCmd = &cobra.Command{
	Use:   "youtube",
	Short: "Authenticate with YouTube (OAuth)",
	Long:  `Complete the YouTube OAuth flow using YOUTUBE_CLIENT_ID and YOUTUBE_CLIENT_SECRET.`,
	RunE:  runAuthYouTube,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check authentication status for all services",
	Long:  `Verify which services are configured and authenticated.`,
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authYouTubeCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println(authInfoStyle.Render("\nService Authentication Status:\n"))

	auth := youtube.NewAuth(cfg.YouTubeClientID, cfg.YouTubeClientSecret, cfg.YouTubeTokenPath)
	switch {
	case !auth.Configured():
		fmt.Println(authErrorStyle.Render("✗ YouTube: missing YOUTUBE_CLIENT_ID or YOUTUBE_CLIENT_SECRET"))
	case auth.IsAuthenticated():
		fmt.Println(authSuccessStyle.Render("✓ YouTube: authenticated"))
	default:
		fmt.Println(authErrorStyle.Render("✗ YouTube: credentials set, but not authenticated"))
		fmt.Println(authInfoStyle.Render("  Run: shortsflow auth youtube"))
	}

	printKeyStatus("Groq", "GROQ_API_KEY", cfg.GroqAPIKey)
	printKeyStatus("OpenAI", "OPENAI_API_KEY", cfg.OpenAIAPIKey)
	printKeyStatus("ElevenLabs", "ELEVENLABS_API_KEY", cfg.ElevenLabsAPIKey)
	printKeyStatus("Creatomate", "CREATOMATE_API_KEY", cfg.CreatomateAPIKey)
	printKeyStatus("Database", "DATABASE_URL", cfg.DatabaseURL)

	if cfg.Storage.AudioBucket != "" {
		fmt.Println(authSuccessStyle.Render("✓ GCS: audio bucket " + cfg.Storage.AudioBucket))
	} else {
		fmt.Println(authInfoStyle.Render("○ GCS: no audio bucket (renders need public audio URLs)"))
	}

	if cfg.GCPProject != "" {
		fmt.Println(authSuccessStyle.Render("✓ Secret Manager: project " + cfg.GCPProject))
	} else {
		fmt.Println(authInfoStyle.Render("○ Secret Manager: not configured (optional)"))
	}

	fmt.Println()
	return nil
}

func printKeyStatus(service, env, value string) {
	if value != "" {
		fmt.Println(authSuccessStyle.Render(fmt.Sprintf("✓ %s: configured", service)))
		return
	}
	fmt.Println(authErrorStyle.Render(fmt.Sprintf("✗ %s: missing %s", service, env)))
}

func runAuthYouTube(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	auth := youtube.NewAuth(cfg.YouTubeClientID, cfg.YouTubeClientSecret, cfg.YouTubeTokenPath)
	if !auth.Configured() {
		return fmt.Errorf("YOUTUBE_CLIENT_ID and YOUTUBE_CLIENT_SECRET must be set in .env")
	}

	return runYouTubeAuth(cmd.Context(), auth)
}

func runYouTubeAuth(ctx context.Context, auth *youtube.Auth) error {
	state := uuid.NewString()
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	listener, err := net.Listen("tcp", youtube.CallbackAddr)
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}

	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
	}

	server.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/callback" {
			http.NotFound(w, r)
			return
		}

		if r.URL.Query().Get("state") != state {
			errChan <- fmt.Errorf("oauth state mismatch")
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no code in callback")
			_, _ = fmt.Fprintf(w, "<html><body><h1>Error</h1><p>No authorization code received.</p></body></html>")
			return
		}

		codeChan <- code
		_, _ = fmt.Fprintf(w, "<html><body><h1>Success!</h1><p>You can close this window and return to the terminal.</p></body></html>")
	})

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}()

	authURL := auth.GetAuthURL(state)
	fmt.Println(authInfoStyle.Render("\nOpening browser for YouTube authentication..."))
	fmt.Println(authInfoStyle.Render("If browser doesn't open, visit:\n" + authURL))

	_ = browser.OpenURL(authURL)

	fmt.Println(authInfoStyle.Render("\nWaiting for authentication..."))

	select {
	case code := <-codeChan:
		if err := auth.Exchange(ctx, code); err != nil {
			return err
		}

		fmt.Println(authSuccessStyle.Render("✓ YouTube authentication complete"))
		fmt.Println(authSuccessStyle.Render("  Token saved to: " + auth.TokenPath()))
		return nil

	case err := <-errChan:
		return err

	case <-ctx.Done():
		return ctx.Err()

	case <-time.After(5 * time.Minute):
		return fmt.Errorf("authentication timed out")
	}
}
