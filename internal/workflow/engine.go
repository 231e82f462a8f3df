package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"shortsflow/internal/model"
)

const (
	ModeGenerate = "generate"
	ModeReuse    = "reuse"
)

const (
	defaultVideoDuration = 60
	recentLogLimit       = 10
	defaultLogLimit      = 50
)

type Engine struct {
	store     Store
	ideas     IdeaGenerator
	scripts   ScriptWriter
	speech    SpeechSynthesizer
	renderer  VideoRenderer
	publisher Publisher
	stats     StatsFetcher
	paths     Paths
	clock     Clock
	poll      PollPolicy
	newRunID  func() string
}

// Options wires the engine. A nil port makes the steps that need it fail
// with ErrConfigurationMissing.
type Options struct {
	Store     Store
	Ideas     IdeaGenerator
	Scripts   ScriptWriter
	Speech    SpeechSynthesizer
	Renderer  VideoRenderer
	Publisher Publisher
	Stats     StatsFetcher
	Paths     Paths
	Clock     Clock
	Poll      PollPolicy
	NewRunID  func() string
}

func New(opts Options) *Engine {
	e := &Engine{
		store:     opts.Store,
		ideas:     opts.Ideas,
		scripts:   opts.Scripts,
		speech:    opts.Speech,
		renderer:  opts.Renderer,
		publisher: opts.Publisher,
		stats:     opts.Stats,
		paths:     opts.Paths,
		clock:     opts.Clock,
		poll:      opts.Poll.withDefaults(),
		newRunID:  opts.NewRunID,
	}
	if e.clock == nil {
		e.clock = RealClock()
	}
	if e.newRunID == nil {
		e.newRunID = uuid.NewString
	}
	return e
}

func (e *Engine) GenerateIdeas(ctx context.Context, channelID int64, count int) ([]model.Idea, error) {
	const step = model.StepIdeaGeneration
	var created []*model.Idea

	err := e.track(ctx, step, func(t *tracker) (string, error) {
		ch, err := e.store.GetChannel(ctx, channelID)
		if err != nil {
			return "", lookupErr(step, "channel", channelID, err)
		}
		t.bindChannel(ch.ID)

		if count <= 0 {
			return "", stepErr(step, ErrPreconditionFailed, "idea count must be positive, got %d", count)
		}
		if e.ideas == nil {
			return "", stepErr(step, ErrConfigurationMissing, "idea generator not configured")
		}

		t.begin(ctx, fmt.Sprintf("Generating %d ideas for %q", count, ch.Name))

		drafts, err := e.ideas.GenerateIdeas(ctx, IdeaRequest{
			Topic:    ch.Topic,
			Audience: ch.TargetAudience,
			Style:    ch.ContentStyle,
			Count:    count,
		})
		if err != nil {
			return "", classify(step, ErrExternalService, err)
		}
		if len(drafts) > count {
			drafts = drafts[:count]
		}

		created = make([]*model.Idea, 0, len(drafts))
		for _, d := range drafts {
			created = append(created, &model.Idea{
				ChannelID: ch.ID,
				Title:     d.Title,
				Hook:      d.Hook,
				Content:   d.Content,
				CTA:       d.CTA,
				Keywords:  d.Keywords,
				Status:    model.IdeaPending,
			})
		}
		if len(created) > 0 {
			if err := e.store.CreateIdeas(ctx, created); err != nil {
				return "", fmt.Errorf("save ideas: %w", err)
			}
		}

		return fmt.Sprintf("Generated %d ideas", len(created)), nil
	})
	if err != nil {
		return nil, err
	}

	ideas := make([]model.Idea, len(created))
	for i, idea := range created {
		ideas[i] = *idea
	}
	return ideas, nil
}

func (e *Engine) CreateScript(ctx context.Context, ideaID int64) (*model.Idea, error) {
	const step = model.StepScriptCreation
	var idea *model.Idea

	err := e.track(ctx, step, func(t *tracker) (string, error) {
		var err error
		idea, err = e.store.GetIdea(ctx, ideaID)
		if err != nil {
			return "", lookupErr(step, "idea", ideaID, err)
		}
		t.bindChannel(idea.ChannelID)

		ch, err := e.store.GetChannel(ctx, idea.ChannelID)
		if err != nil {
			return "", lookupErr(step, "channel", idea.ChannelID, err)
		}
		if e.scripts == nil {
			return "", stepErr(step, ErrConfigurationMissing, "script writer not configured")
		}

		duration := ch.VideoDuration
		if duration <= 0 {
			duration = defaultVideoDuration
		}

		t.begin(ctx, fmt.Sprintf("Creating script for %q", idea.Title))

		draft, err := e.scripts.WriteScript(ctx, ScriptRequest{
			Title:    idea.Title,
			Hook:     idea.Hook,
			Content:  idea.Content,
			CTA:      idea.CTA,
			Duration: duration,
		})
		if err != nil {
			return "", classify(step, ErrExternalService, err)
		}
		if draft == nil || strings.TrimSpace(draft.Script) == "" {
			return "", stepErr(step, ErrExternalService, "script writer returned an empty script")
		}

		segments := model.Segments(draft.Segments)
		if len(segments) == 0 {
			segments = model.Segments{{Start: 0, End: float64(duration), Text: draft.Script}}
		}

		idea.Script = draft.Script
		idea.Segments = segments
		idea.Status = model.IdeaScriptReady
		if err := e.store.UpdateIdeaScript(ctx, idea); err != nil {
			return "", fmt.Errorf("save script: %w", err)
		}

		return fmt.Sprintf("Script created with %d segments", len(segments)), nil
	})
	if err != nil {
		return nil, err
	}
	return idea, nil
}

func (e *Engine) GenerateAudio(ctx context.Context, ideaID int64) (string, error) {
	const step = model.StepTTS
	var audioPath string

	err := e.track(ctx, step, func(t *tracker) (string, error) {
		idea, err := e.store.GetIdea(ctx, ideaID)
		if err != nil {
			return "", lookupErr(step, "idea", ideaID, err)
		}
		t.bindChannel(idea.ChannelID)

		if strings.TrimSpace(idea.Script) == "" {
			return "", stepErr(step, ErrPreconditionFailed, "idea %d has no script", idea.ID)
		}
		if e.speech == nil {
			return "", stepErr(step, ErrConfigurationMissing, "speech synthesizer not configured")
		}
		if e.paths == nil {
			return "", stepErr(step, ErrConfigurationMissing, "artifact paths not configured")
		}

		t.begin(ctx, fmt.Sprintf("Synthesizing audio for %q", idea.Title))

		target := e.paths.AudioPath(idea.ID, e.clock.Now())
		audioPath, err = e.speech.Synthesize(ctx, idea.Script, target)
		if err != nil {
			return "", classify(step, ErrExternalService, err)
		}
		if audioPath == "" {
			audioPath = target
		}

		return "Audio saved to " + audioPath, nil
	})
	if err != nil {
		return "", err
	}
	return audioPath, nil
}

func (e *Engine) RenderVideo(ctx context.Context, ideaID int64, audioRef string) (*model.Video, error) {
	const step = model.StepRendering
	var video *model.Video

	err := e.track(ctx, step, func(t *tracker) (string, error) {
		idea, err := e.store.GetIdea(ctx, ideaID)
		if err != nil {
			return "", lookupErr(step, "idea", ideaID, err)
		}
		t.bindChannel(idea.ChannelID)

		ch, err := e.store.GetChannel(ctx, idea.ChannelID)
		if err != nil {
			return "", lookupErr(step, "channel", idea.ChannelID, err)
		}
		if ch.TemplateID == "" {
			return "", stepErr(step, ErrConfigurationMissing, "channel %d has no render template", ch.ID)
		}
		if e.renderer == nil {
			return "", stepErr(step, ErrConfigurationMissing, "video renderer not configured")
		}
		if e.paths == nil {
			return "", stepErr(step, ErrConfigurationMissing, "artifact paths not configured")
		}
		if audioRef == "" {
			return "", stepErr(step, ErrPreconditionFailed, "no audio for idea %d", idea.ID)
		}
		if len(idea.Segments) == 0 {
			return "", stepErr(step, ErrPreconditionFailed, "idea %d has no script segments", idea.ID)
		}

		video = &model.Video{
			ChannelID:   ch.ID,
			IdeaID:      &idea.ID,
			Title:       idea.Title,
			Description: describe(idea),
			AudioPath:   audioRef,
			Status:      model.VideoRendering,
		}
		if err := e.store.CreateVideo(ctx, video); err != nil {
			return "", fmt.Errorf("create video: %w", err)
		}
		t.bindVideo(video.ID, func(ctx context.Context, msg string) error {
			video.Status = model.VideoFailed
			video.ErrorMessage = msg
			return e.store.UpdateVideo(ctx, video)
		})

		t.begin(ctx, fmt.Sprintf("Rendering %q with template %s", idea.Title, ch.TemplateID))

		jobID, err := e.renderer.Submit(ctx, RenderRequest{
			TemplateID: ch.TemplateID,
			Segments:   idea.Segments,
			AudioRef:   audioRef,
		})
		if err != nil {
			return "", classify(step, ErrExternalService, err)
		}
		video.RenderJobID = jobID
		if err := e.store.UpdateVideo(ctx, video); err != nil {
			return "", fmt.Errorf("record render job: %w", err)
		}

		url, err := waitForRender(ctx, e.renderer, e.clock, e.poll, jobID)
		if err != nil {
			return "", err
		}

		path, err := e.renderer.Download(ctx, url, e.paths.VideoPath(video.ID, e.clock.Now()))
		if err != nil {
			return "", classify(step, ErrExternalService, fmt.Errorf("download render: %w", err))
		}
		if info, err := os.Stat(path); err == nil {
			video.FileSize = info.Size()
		}

		video.VideoPath = path
		video.Status = model.VideoCompleted
		video.ErrorMessage = ""
		if err := e.store.UpdateVideo(ctx, video); err != nil {
			return "", fmt.Errorf("save video: %w", err)
		}

		return "Video rendered to " + path, nil
	})
	if err != nil {
		return nil, err
	}
	return video, nil
}

// UploadVideo publishes a rendered video. A video left in upload_failed may
// be uploaded again.
func (e *Engine) UploadVideo(ctx context.Context, videoID int64) (*model.Video, error) {
	const step = model.StepUpload
	var video *model.Video

	err := e.track(ctx, step, func(t *tracker) (string, error) {
		var err error
		video, err = e.store.GetVideo(ctx, videoID)
		if err != nil {
			return "", lookupErr(step, "video", videoID, err)
		}
		t.bindChannel(video.ChannelID)
		t.bindVideo(video.ID, nil)

		if video.Status != model.VideoCompleted && video.Status != model.VideoUploadFailed {
			return "", stepErr(step, ErrPreconditionFailed, "video %d is %s, not rendered", video.ID, video.Status)
		}
		t.bindVideo(video.ID, func(ctx context.Context, msg string) error {
			video.Status = model.VideoUploadFailed
			video.ErrorMessage = msg
			return e.store.UpdateVideo(ctx, video)
		})
		if video.VideoPath == "" {
			return "", stepErr(step, ErrPreconditionFailed, "video %d has no render artifact", video.ID)
		}
		if _, err := os.Stat(video.VideoPath); err != nil {
			return "", stepErr(step, ErrPreconditionFailed, "render artifact for video %d: %v", video.ID, err)
		}
		ch, err := e.store.GetChannel(ctx, video.ChannelID)
		if err != nil {
			return "", lookupErr(step, "channel", video.ChannelID, err)
		}
		if e.publisher == nil {
			return "", stepErr(step, ErrConfigurationMissing, "publisher not configured")
		}

		tags := []string(ch.Keywords)
		if video.IdeaID != nil {
			idea, err := e.store.GetIdea(ctx, *video.IdeaID)
			switch {
			case err == nil && len(idea.Keywords) > 0:
				tags = idea.Keywords
			case err != nil && !errors.Is(err, ErrNotFound):
				return "", fmt.Errorf("load idea %d: %w", *video.IdeaID, err)
			}
		}

		t.begin(ctx, fmt.Sprintf("Uploading %q", video.Title))

		res, err := e.publisher.Publish(ctx, PublishRequest{
			FilePath:    video.VideoPath,
			Title:       video.Title,
			Description: video.Description,
			Tags:        tags,
			Privacy:     ch.PrivacyStatus,
		})
		if err != nil {
			return "", classify(step, ErrExternalService, err)
		}

		now := e.clock.Now()
		video.PublishID = res.ID
		video.PublishURL = res.URL
		video.Status = model.VideoUploaded
		video.ErrorMessage = ""
		video.UploadedAt = &now
		if err := e.store.UpdateVideo(ctx, video); err != nil {
			return "", fmt.Errorf("save upload: %w", err)
		}
		if err := e.store.IncrementChannelVideos(ctx, ch.ID); err != nil {
			slog.Error("Failed to increment channel video count", "channel_id", ch.ID, "error", err)
		}

		return "Uploaded to " + res.URL, nil
	})
	if err != nil {
		return nil, err
	}
	return video, nil
}

func lookupErr(step model.Step, kind string, id int64, err error) error {
	if errors.Is(err, ErrNotFound) {
		return &StepError{Step: step, Kind: ErrNotFound, Err: fmt.Errorf("%s %d not found", kind, id)}
	}
	return fmt.Errorf("load %s %d: %w", kind, id, err)
}

func describe(idea *model.Idea) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{idea.Hook, idea.Content, idea.CTA} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(idea.Keywords) > 0 {
		tags := make([]string, 0, len(idea.Keywords))
		for _, k := range idea.Keywords {
			k = strings.ReplaceAll(strings.TrimSpace(k), " ", "")
			if k != "" {
				tags = append(tags, "#"+k)
			}
		}
		if len(tags) > 0 {
			parts = append(parts, strings.Join(tags, " "))
		}
	}
	return strings.Join(parts, "\n\n")
}
