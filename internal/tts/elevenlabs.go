package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"shortsflow/internal/workflow"
	"shortsflow/pkg/httputil"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	defaultModel      = "eleven_multilingual_v2"
	defaultStability  = 0.5
	defaultSimilarity = 0.75
	defaultTimeout    = 60 * time.Second
)

var _ workflow.SpeechSynthesizer = (*ElevenLabsClient)(nil)

type ElevenLabsOptions struct {
	VoiceID    string
	Model      string
	Stability  float64
	Similarity float64
	BaseURL    string
}

// ElevenLabsClient writes narration audio through the ElevenLabs API.
type ElevenLabsClient struct {
	apiKey     string
	httpClient *httputil.RetryClient
	voiceID    string
	model      string
	stability  float64
	similarity float64
	baseURL    string
}

type Voice struct {
	ID       string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type elevenlabsRequest struct {
	Text          string                `json:"text"`
	ModelID       string                `json:"model_id"`
	VoiceSettings elevenlabsVoiceConfig `json:"voice_settings"`
}

type elevenlabsVoiceConfig struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenlabsErrorResponse struct {
	Detail struct {
		Message string `json:"message"`
	} `json:"detail"`
}

func NewElevenLabsClient(apiKey string, opts ElevenLabsOptions) *ElevenLabsClient {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Stability == 0 {
		opts.Stability = defaultStability
	}
	if opts.Similarity == 0 {
		opts.Similarity = defaultSimilarity
	}
	if opts.BaseURL == "" {
		opts.BaseURL = elevenLabsBaseURL
	}

	return &ElevenLabsClient{
		apiKey:     apiKey,
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: defaultTimeout}, httputil.DefaultRetryConfig()),
		voiceID:    opts.VoiceID,
		model:      opts.Model,
		stability:  opts.Stability,
		similarity: opts.Similarity,
		baseURL:    opts.BaseURL,
	}
}

// Synthesize converts text to speech and writes the audio to outputPath.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, outputPath string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: elevenlabs api key is not set", workflow.ErrConfigurationMissing)
	}
	if c.voiceID == "" {
		return "", fmt.Errorf("%w: elevenlabs voice id is not set", workflow.ErrConfigurationMissing)
	}

	data, err := json.Marshal(elevenlabsRequest{
		Text:    text,
		ModelID: c.model,
		VoiceSettings: elevenlabsVoiceConfig{
			Stability:       c.stability,
			SimilarityBoost: c.similarity,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", fmt.Errorf("empty response from elevenlabs api")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	if err := os.WriteFile(outputPath, body, 0644); err != nil {
		return "", fmt.Errorf("save audio: %w", err)
	}

	slog.Debug("Audio saved", "path", outputPath, "bytes", len(body), "voice", c.voiceID)
	return outputPath, nil
}

// Voices lists the voices available to the account.
func (c *ElevenLabsClient) Voices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse voices: %w", err)
	}
	return resp.Voices, nil
}

func (c *ElevenLabsClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp elevenlabsErrorResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Detail.Message != "" {
			return nil, fmt.Errorf("elevenlabs error: %s", errResp.Detail.Message)
		}
		return nil, fmt.Errorf("elevenlabs error: %s", resp.Status)
	}

	return body, nil
}

func (c *ElevenLabsClient) VoiceID() string {
	return c.voiceID
}
