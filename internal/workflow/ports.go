package workflow

import (
	"context"
	"time"

	"shortsflow/internal/model"
)

const (
	RenderSucceeded = "succeeded"
	RenderFailed    = "failed"
)

type IdeaRequest struct {
	Topic    string
	Audience string
	Style    string
	Count    int
}

type IdeaDraft struct {
	Title    string   `json:"title"`
	Hook     string   `json:"hook"`
	Content  string   `json:"content"`
	CTA      string   `json:"cta"`
	Keywords []string `json:"keywords"`
}

type ScriptRequest struct {
	Title    string
	Hook     string
	Content  string
	CTA      string
	Duration int
}

type ScriptDraft struct {
	Script   string
	Segments []model.Segment
}

type RenderRequest struct {
	TemplateID string
	Segments   []model.Segment
	AudioRef   string
}

type RenderStatus struct {
	State string
	URL   string
	Error string
}

type PublishRequest struct {
	FilePath    string
	Title       string
	Description string
	Tags        []string
	Privacy     string
}

type PublishResult struct {
	ID  string
	URL string
}

type VideoStats struct {
	Views    int64
	Likes    int64
	Comments int64
}

type IdeaGenerator interface {
	GenerateIdeas(ctx context.Context, req IdeaRequest) ([]IdeaDraft, error)
}

type ScriptWriter interface {
	WriteScript(ctx context.Context, req ScriptRequest) (*ScriptDraft, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) (string, error)
}

type VideoRenderer interface {
	Submit(ctx context.Context, req RenderRequest) (string, error)
	Status(ctx context.Context, jobID string) (*RenderStatus, error)
	Download(ctx context.Context, url, destPath string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
}

type StatsFetcher interface {
	Stats(ctx context.Context, publishIDs []string) (map[string]VideoStats, error)
}

// Store is the persistence the engine needs. Getters return an error
// matching ErrNotFound (via errors.Is) when the row does not exist.
type Store interface {
	GetChannel(ctx context.Context, id int64) (*model.Channel, error)
	IncrementChannelVideos(ctx context.Context, id int64) error
	RaiseChannelViews(ctx context.Context, id, views int64) error

	CreateIdeas(ctx context.Context, ideas []*model.Idea) error
	GetIdea(ctx context.Context, id int64) (*model.Idea, error)
	UpdateIdeaScript(ctx context.Context, idea *model.Idea) error
	SetIdeaStatus(ctx context.Context, id int64, status model.IdeaStatus) error
	ListIdeas(ctx context.Context, channelID int64, status model.IdeaStatus, limit int) ([]model.Idea, error)

	CreateVideo(ctx context.Context, v *model.Video) error
	GetVideo(ctx context.Context, id int64) (*model.Video, error)
	UpdateVideo(ctx context.Context, v *model.Video) error
	UpdateVideoStats(ctx context.Context, id, views, likes, comments int64) error
	ListVideos(ctx context.Context, channelID int64, statuses ...model.VideoStatus) ([]model.Video, error)
	CountVideos(ctx context.Context, channelID int64, statuses ...model.VideoStatus) (int, error)

	AppendLog(ctx context.Context, e *model.WorkflowLogEntry) error
	ListLogs(ctx context.Context, channelID int64, offset, limit int) ([]model.WorkflowLogEntry, error)
}

// Paths decides where local artifacts are written.
type Paths interface {
	AudioPath(ideaID int64, at time.Time) string
	VideoPath(videoID int64, at time.Time) string
}
