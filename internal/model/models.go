package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// ErrNotFound is returned by lookups for rows that do not exist.
var ErrNotFound = errors.New("not found")

const (
	IdeaPending     IdeaStatus = "pending"
	IdeaScriptReady IdeaStatus = "script_ready"
	IdeaInProgress  IdeaStatus = "in_progress"
	IdeaCompleted   IdeaStatus = "completed"
	IdeaFailed      IdeaStatus = "failed"
)

const (
	VideoPending      VideoStatus = "pending"
	VideoRendering    VideoStatus = "rendering"
	VideoCompleted    VideoStatus = "completed"
	VideoUploaded     VideoStatus = "uploaded"
	VideoFailed       VideoStatus = "failed"
	VideoUploadFailed VideoStatus = "upload_failed"
)

const (
	StepIdeaGeneration Step = "idea_generation"
	StepScriptCreation Step = "script_creation"
	StepTTS            Step = "tts"
	StepRendering      Step = "rendering"
	StepUpload         Step = "upload"
)

const (
	LogStarted   LogStatus = "started"
	LogCompleted LogStatus = "completed"
	LogFailed    LogStatus = "failed"
)

type IdeaStatus string

type VideoStatus string

type Step string

type LogStatus string

type Channel struct {
	ID             int64          `db:"id"`
	Name           string         `db:"name"`
	Category       string         `db:"category"`
	Topic          string         `db:"topic"`
	Description    string         `db:"description"`
	TargetAudience string         `db:"target_audience"`
	ContentStyle   string         `db:"content_style"`
	Keywords       pq.StringArray `db:"keywords"`
	TemplateID     string         `db:"template_id"`
	VideoDuration  int            `db:"video_duration"`
	AutoUpload     bool           `db:"auto_upload"`
	PrivacyStatus  string         `db:"privacy_status"`
	TotalVideos    int64          `db:"total_videos"`
	TotalViews     int64          `db:"total_views"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type Idea struct {
	ID        int64          `db:"id"`
	ChannelID int64          `db:"channel_id"`
	Title     string         `db:"title"`
	Hook      string         `db:"hook"`
	Content   string         `db:"content"`
	CTA       string         `db:"cta"`
	Keywords  pq.StringArray `db:"keywords"`
	Script    string         `db:"script"`
	Segments  Segments       `db:"segments"`
	Status    IdeaStatus     `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// Segment is one timed portion of narration, in seconds from the start.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Segments is stored as a JSON document.
type Segments []Segment

func (s Segments) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *Segments) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan segments: unsupported type %T", src)
	}
	return json.Unmarshal(data, s)
}

// Text joins the segment texts in order.
func (s Segments) Text() string {
	parts := make([]string, 0, len(s))
	for _, seg := range s {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

type Video struct {
	ID           int64       `db:"id"`
	ChannelID    int64       `db:"channel_id"`
	IdeaID       *int64      `db:"idea_id"`
	Title        string      `db:"title"`
	Description  string      `db:"description"`
	AudioPath    string      `db:"audio_path"`
	SubtitlePath string      `db:"subtitle_path"`
	VideoPath    string      `db:"video_path"`
	RenderJobID  string      `db:"render_job_id"`
	PublishID    string      `db:"publish_id"`
	PublishURL   string      `db:"publish_url"`
	FileSize     int64       `db:"file_size"`
	Status       VideoStatus `db:"status"`
	ErrorMessage string      `db:"error_message"`
	Views        int64       `db:"views"`
	Likes        int64       `db:"likes"`
	Comments     int64       `db:"comments"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	UploadedAt   *time.Time  `db:"uploaded_at"`
}

// WorkflowLogEntry records one attempt of one pipeline step. Entries are never updated.
type WorkflowLogEntry struct {
	ID         int64     `db:"id"`
	ChannelID  *int64    `db:"channel_id"`
	VideoID    *int64    `db:"video_id"`
	Step       Step      `db:"step"`
	Status     LogStatus `db:"status"`
	Message    string    `db:"message"`
	Error      string    `db:"error"`
	DurationMS int64     `db:"duration_ms"`
	CreatedAt  time.Time `db:"created_at"`
}

func (e WorkflowLogEntry) Duration() time.Duration {
	return time.Duration(e.DurationMS) * time.Millisecond
}
