package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// SecretSource looks up a secret value by name.
type SecretSource interface {
	Secret(ctx context.Context, name string) (string, error)
}

type SecretManager struct {
	client  *secretmanager.Client
	project string
}

func NewSecretManager(ctx context.Context, project string) (*SecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	return &SecretManager{client: client, project: project}, nil
}

func (s *SecretManager) Close() error {
	return s.client.Close()
}

func (s *SecretManager) Secret(ctx context.Context, name string) (string, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.project, name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", name, err)
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

func secretFields(cfg *Config) map[string]*string {
	return map[string]*string{
		"GROQ_API_KEY":          &cfg.GroqAPIKey,
		"OPENAI_API_KEY":        &cfg.OpenAIAPIKey,
		"ELEVENLABS_API_KEY":    &cfg.ElevenLabsAPIKey,
		"CREATOMATE_API_KEY":    &cfg.CreatomateAPIKey,
		"YOUTUBE_CLIENT_SECRET": &cfg.YouTubeClientSecret,
		"DATABASE_URL":          &cfg.DatabaseURL,
	}
}

// resolveSecrets fills empty secret fields. Lookup failures are logged and
// leave the field empty; adapters report the missing value when used.
func resolveSecrets(ctx context.Context, cfg *Config, source SecretSource) error {
	missing := make(map[string]*string)
	for name, field := range secretFields(cfg) {
		if *field == "" {
			missing[name] = field
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if source == nil {
		if cfg.GCPProject == "" {
			return nil
		}
		sm, err := NewSecretManager(ctx, cfg.GCPProject)
		if err != nil {
			slog.Warn("Secret Manager unavailable", "project", cfg.GCPProject, "error", err)
			return nil
		}
		defer func() { _ = sm.Close() }()
		source = sm
	}

	for name, field := range missing {
		value, err := source.Secret(ctx, name)
		if err != nil {
			slog.Debug("Secret not resolved", "name", name, "error", err)
			continue
		}
		*field = value
	}
	return nil
}
