package app

import (
	"context"
	"fmt"
	"log/slog"

	"shortsflow/internal/distribution/youtube"
	"shortsflow/internal/llm"
	"shortsflow/internal/llm/groq"
	"shortsflow/internal/llm/openai"
	"shortsflow/internal/render/creatomate"
	"shortsflow/internal/storage"
	"shortsflow/internal/store"
	"shortsflow/internal/tts"
	"shortsflow/internal/workflow"
	"shortsflow/pkg/config"
	"shortsflow/pkg/prompts"
)

// BuildService connects to the database and wires every adapter into a
// workflow engine.
func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is not set", workflow.ErrConfigurationMissing)
	}

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	svc, err := BuildServiceWithStore(ctx, cfg, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	svc.closers = append([]func() error{st.Close}, svc.closers...)
	return svc, nil
}

// BuildServiceWithStore wires the adapters around an existing store. Ports
// whose credentials are missing are left out so the engine reports
// ErrConfigurationMissing when a step needs them.
func BuildServiceWithStore(ctx context.Context, cfg *config.Config, st *store.Store) (*Service, error) {
	p, err := prompts.LoadFrom(cfg.LLM.Prompts)
	if err != nil {
		return nil, err
	}

	opts := workflow.Options{
		Store: st,
		Poll: workflow.PollPolicy{
			Interval: cfg.Creatomate.PollInterval,
			MaxWait:  cfg.Creatomate.MaxWait,
		},
	}

	if completer, err := newCompleter(cfg); err == nil {
		writer := llm.NewWriter(completer, p)
		opts.Ideas = writer
		opts.Scripts = writer
	} else {
		slog.Debug("Idea and script generation disabled", "reason", err)
	}

	speech := tts.NewElevenLabsClient(cfg.ElevenLabsAPIKey, tts.ElevenLabsOptions{
		VoiceID:    cfg.ElevenLabs.VoiceID,
		Model:      cfg.ElevenLabs.Model,
		Stability:  cfg.ElevenLabs.Stability,
		Similarity: cfg.ElevenLabs.Similarity,
	})
	opts.Speech = speech

	local := storage.NewLocalStorage(cfg.Storage.OutputDir)
	if err := local.EnsureDirectories(); err != nil {
		return nil, err
	}
	opts.Paths = local

	var closers []func() error
	renderOpts := creatomate.Options{
		BaseURL:           cfg.Creatomate.BaseURL,
		RequestsPerSecond: cfg.Creatomate.RequestsPerSecond,
	}
	if cfg.Storage.AudioBucket != "" {
		gcs, err := storage.NewGCSStorage(ctx, cfg.Storage.AudioBucket, cfg.Storage.AudioPrefix)
		if err != nil {
			return nil, err
		}
		closers = append(closers, gcs.Close)
		renderOpts.AudioHost = gcs
	}
	opts.Renderer = creatomate.NewClient(cfg.CreatomateAPIKey, renderOpts)

	auth := youtube.NewAuth(cfg.YouTubeClientID, cfg.YouTubeClientSecret, cfg.YouTubeTokenPath)
	yt := youtube.NewClient(auth, youtube.Options{
		CategoryID:  cfg.YouTube.CategoryID,
		DefaultTags: cfg.YouTube.DefaultTags,
	})
	opts.Publisher = yt
	opts.Stats = yt

	return NewService(ServiceOptions{
		Config:  cfg,
		Store:   st,
		Engine:  workflow.New(opts),
		Speech:  speech,
		YouTube: yt,
		Paths:   local,
		Closers: closers,
	}), nil
}

func newCompleter(cfg *config.Config) (llm.Completer, error) {
	switch cfg.LLM.Provider {
	case "", "groq":
		return groq.NewClient(cfg.GroqAPIKey, cfg.Groq.Model)
	case "openai":
		return openai.NewClient(cfg.OpenAIAPIKey, openai.Options{
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
