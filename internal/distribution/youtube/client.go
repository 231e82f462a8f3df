package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"shortsflow/internal/workflow"
)

const (
	defaultCategoryID = "22"
	defaultPrivacy    = "private"
	watchURL          = "https://www.youtube.com/watch?v="
	maxIDsPerRequest  = 50
)

var (
	_ workflow.Publisher    = (*Client)(nil)
	_ workflow.StatsFetcher = (*Client)(nil)
)

type Options struct {
	CategoryID  string
	DefaultTags []string
	// Endpoint and HTTPClient override the API location and transport.
	Endpoint   string
	HTTPClient *http.Client
}

type Client struct {
	auth *Auth
	opts Options
}

func NewClient(auth *Auth, opts Options) *Client {
	if opts.CategoryID == "" {
		opts.CategoryID = defaultCategoryID
	}
	return &Client{auth: auth, opts: opts}
}

func (c *Client) Auth() *Auth {
	return c.auth
}

func (c *Client) service(ctx context.Context) (*yt.Service, error) {
	httpClient := c.opts.HTTPClient
	if httpClient == nil {
		if c.auth == nil || !c.auth.Configured() {
			return nil, fmt.Errorf("%w: youtube client id and secret are not set", workflow.ErrConfigurationMissing)
		}
		hc, err := c.auth.Client(ctx)
		if errors.Is(err, ErrNotAuthenticated) {
			return nil, fmt.Errorf("%w: %v (run: shortsflow auth youtube)", workflow.ErrConfigurationMissing, err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get auth client: %w", err)
		}
		httpClient = hc
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.opts.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.opts.Endpoint))
	}

	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return svc, nil
}

func (c *Client) Publish(ctx context.Context, req workflow.PublishRequest) (*workflow.PublishResult, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video file: %w", err)
	}
	defer func() { _ = f.Close() }()

	privacy := req.Privacy
	if privacy == "" {
		privacy = defaultPrivacy
	}

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       truncate(req.Title, 100),
			Description: truncate(req.Description, 5000),
			Tags:        c.tags(req.Tags),
			CategoryId:  c.opts.CategoryID,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	resp, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f, googleapi.ContentType("video/mp4")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}
	if resp.Id == "" {
		return nil, fmt.Errorf("youtube returned no video id")
	}

	slog.Info("Video published", "id", resp.Id, "privacy", privacy)
	return &workflow.PublishResult{ID: resp.Id, URL: watchURL + resp.Id}, nil
}

func (c *Client) Stats(ctx context.Context, publishIDs []string) (map[string]workflow.VideoStats, error) {
	out := make(map[string]workflow.VideoStats, len(publishIDs))
	if len(publishIDs) == 0 {
		return out, nil
	}

	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(publishIDs); start += maxIDsPerRequest {
		end := min(start+maxIDsPerRequest, len(publishIDs))

		resp, err := svc.Videos.List([]string{"statistics"}).Id(publishIDs[start:end]...).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch statistics: %w", err)
		}

		for _, item := range resp.Items {
			if item.Statistics == nil {
				continue
			}
			out[item.Id] = workflow.VideoStats{
				Views:    int64(item.Statistics.ViewCount),
				Likes:    int64(item.Statistics.LikeCount),
				Comments: int64(item.Statistics.CommentCount),
			}
		}
	}

	return out, nil
}

func (c *Client) tags(tags []string) []string {
	if len(tags) > 0 {
		return tags
	}
	return c.opts.DefaultTags
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
