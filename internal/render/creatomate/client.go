package creatomate

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
	"strings"
	"time"

	"golang.org/x/time/rate"

	"shortsflow/internal/workflow"
	"shortsflow/pkg/httputil"
)

const (
	defaultBaseURL           = "https://api.creatomate.com/v1"
	defaultRequestsPerSecond = 2.0
	defaultTimeout           = 30 * time.Second
	downloadTimeout          = 5 * time.Minute
)

var _ workflow.VideoRenderer = (*Client)(nil)

// AudioHost makes a local audio file reachable by URL.
type AudioHost interface {
	UploadAudio(ctx context.Context, localPath string) (string, error)
}

type Options struct {
	BaseURL           string
	RequestsPerSecond float64
	AudioHost         AudioHost
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httputil.RetryClient
	download   *httputil.RetryClient
	limiter    *rate.Limiter
	audioHost  AudioHost
}

type renderRequest struct {
	TemplateID    string            `json:"template_id"`
	Modifications map[string]string `json:"modifications"`
}

type render struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	URL          string `json:"url"`
	ErrorMessage string `json:"error_message"`
}

func NewClient(apiKey string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRequestsPerSecond
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: defaultTimeout}, httputil.DefaultRetryConfig()),
		download:   httputil.NewRetryClient(&http.Client{Timeout: downloadTimeout}, httputil.DefaultRetryConfig()),
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		audioHost:  opts.AudioHost,
	}
}

// Modifications maps segments onto the template's Text-1..Text-n elements
// and the audio onto its Audio element.
func Modifications(req workflow.RenderRequest, audioURL string) map[string]string {
	mods := make(map[string]string, len(req.Segments)+1)
	for i, seg := range req.Segments {
		mods[fmt.Sprintf("Text-%d", i+1)] = seg.Text
	}
	if audioURL != "" {
		mods["Audio"] = audioURL
	}
	return mods
}

func (c *Client) Submit(ctx context.Context, req workflow.RenderRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: creatomate api key is not set", workflow.ErrConfigurationMissing)
	}

	audioURL, err := c.audioURL(ctx, req.AudioRef)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(renderRequest{
		TemplateID:    req.TemplateID,
		Modifications: Modifications(req, audioURL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.call(ctx, http.MethodPost, "/renders", data)
	if err != nil {
		return "", err
	}

	r, err := decodeRender(body)
	if err != nil {
		return "", err
	}
	if r.ID == "" {
		return "", fmt.Errorf("creatomate returned no render id")
	}

	slog.Debug("Render submitted", "render_id", r.ID, "template_id", req.TemplateID, "status", r.Status)
	return r.ID, nil
}

func (c *Client) Status(ctx context.Context, jobID string) (*workflow.RenderStatus, error) {
	body, err := c.call(ctx, http.MethodGet, "/renders/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	r, err := decodeRender(body)
	if err != nil {
		return nil, err
	}

	return &workflow.RenderStatus{State: r.Status, URL: r.URL, Error: r.ErrorMessage}, nil
}

// Download streams the rendered file to destPath.
func (c *Client) Download(ctx context.Context, url, destPath string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.download.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download render: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download render: %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("create video dir: %w", err)
	}

	tmp := destPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create video file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write video file: %w", err)
	}
	if err := os.Rename(tmp, destPath); err != nil {
		return "", fmt.Errorf("save video file: %w", err)
	}

	slog.Debug("Render downloaded", "path", destPath, "bytes", n)
	return destPath, nil
}

func (c *Client) audioURL(ctx context.Context, ref string) (string, error) {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	if c.audioHost == nil {
		return "", fmt.Errorf("%w: audio %s is local and no audio bucket is configured", workflow.ErrConfigurationMissing, ref)
	}

	url, err := c.audioHost.UploadAudio(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("host audio: %w", err)
	}
	return url, nil
}

func (c *Client) call(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Message string `json:"message"`
			Hint    string `json:"hint"`
		}
		if jsonErr := json.Unmarshal(data, &errResp); jsonErr == nil && errResp.Message != "" {
			return nil, fmt.Errorf("creatomate error: %s", errResp.Message)
		}
		return nil, fmt.Errorf("creatomate error: %s", resp.Status)
	}

	return data, nil
}

// decodeRender accepts a single render or the list returned on submit.
func decodeRender(body []byte) (*render, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var renders []render
		if err := json.Unmarshal(trimmed, &renders); err != nil {
			return nil, fmt.Errorf("failed to parse renders: %w", err)
		}
		if len(renders) == 0 {
			return nil, fmt.Errorf("creatomate returned no renders")
		}
		return &renders[0], nil
	}

	var r render
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, fmt.Errorf("failed to parse render: %w", err)
	}
	return &r, nil
}
