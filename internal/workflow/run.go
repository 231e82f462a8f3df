package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"shortsflow/internal/model"
)

// IdeaOutcome is the result of pushing one idea through the pipeline in a
// batch. FailedStep is empty when the idea produced a video.
type IdeaOutcome struct {
	IdeaID     int64
	Title      string
	VideoID    int64
	FailedStep model.Step
	Err        error
}

type RunReport struct {
	RunID     string
	ChannelID int64
	Mode      string
	Videos    []model.Video
	Outcomes  []IdeaOutcome
}

func (r *RunReport) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.FailedStep != "" && o.FailedStep != model.StepUpload {
			n++
		}
	}
	return n
}

// RunFullWorkflow returns the videos that made it through rendering.
func (e *Engine) RunFullWorkflow(ctx context.Context, channelID int64, mode string, count int) ([]model.Video, error) {
	report, err := e.RunBatch(ctx, channelID, mode, count, "")
	if report == nil {
		return nil, err
	}
	return report.Videos, err
}

// RunBatch processes up to count ideas one after another. A failing idea is
// recorded in the report and the batch moves on. runID may be empty.
func (e *Engine) RunBatch(ctx context.Context, channelID int64, mode string, count int, runID string) (*RunReport, error) {
	if mode != ModeGenerate && mode != ModeReuse {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrPreconditionFailed, mode)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", ErrPreconditionFailed, count)
	}

	ch, err := e.channel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	if runID == "" {
		runID = e.newRunID()
	}
	report := &RunReport{RunID: runID, ChannelID: ch.ID, Mode: mode}
	logger := slog.With("run_id", runID, "channel_id", ch.ID)
	logger.Info("Starting workflow run", "mode", mode, "count", count, "auto_upload", ch.AutoUpload)

	var ideas []model.Idea
	switch mode {
	case ModeGenerate:
		ideas, err = e.GenerateIdeas(ctx, ch.ID, count)
		if err != nil {
			return report, err
		}
	case ModeReuse:
		ideas, err = e.store.ListIdeas(ctx, ch.ID, model.IdeaPending, count)
		if err != nil {
			return report, fmt.Errorf("list pending ideas: %w", err)
		}
	}

	for i := range ideas {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		idea := ideas[i]
		logger.Info("Processing idea", "idea_id", idea.ID, "title", idea.Title, "position", i+1, "total", len(ideas))

		video, failedStep, err := e.processIdea(ctx, ch, idea)
		outcome := IdeaOutcome{IdeaID: idea.ID, Title: idea.Title, FailedStep: failedStep, Err: err}
		if video != nil {
			outcome.VideoID = video.ID
			report.Videos = append(report.Videos, *video)
		}
		report.Outcomes = append(report.Outcomes, outcome)

		if err != nil {
			logger.Warn("Idea did not complete", "idea_id", idea.ID, "step", failedStep, "error", err)
		}
	}

	logger.Info("Workflow run finished", "ideas", len(ideas), "videos", len(report.Videos), "failed", report.Failed())
	return report, nil
}

// processIdea runs script, audio, render and the optional upload for one
// idea. The returned video is non-nil once rendering succeeded.
func (e *Engine) processIdea(ctx context.Context, ch *model.Channel, idea model.Idea) (*model.Video, model.Step, error) {
	if strings.TrimSpace(idea.Script) == "" {
		if _, err := e.CreateScript(ctx, idea.ID); err != nil {
			e.setIdeaStatus(ctx, idea.ID, model.IdeaFailed)
			return nil, model.StepScriptCreation, err
		}
	}
	e.setIdeaStatus(ctx, idea.ID, model.IdeaInProgress)

	audio, err := e.GenerateAudio(ctx, idea.ID)
	if err != nil {
		e.setIdeaStatus(ctx, idea.ID, model.IdeaFailed)
		return nil, model.StepTTS, err
	}

	video, err := e.RenderVideo(ctx, idea.ID, audio)
	if err != nil {
		e.setIdeaStatus(ctx, idea.ID, model.IdeaFailed)
		return nil, model.StepRendering, err
	}
	e.setIdeaStatus(ctx, idea.ID, model.IdeaCompleted)

	if !ch.AutoUpload {
		return video, "", nil
	}

	uploaded, err := e.UploadVideo(ctx, video.ID)
	if err != nil {
		video.Status = model.VideoUploadFailed
		video.ErrorMessage = Message(err)
		return video, model.StepUpload, err
	}
	return uploaded, "", nil
}

func (e *Engine) setIdeaStatus(ctx context.Context, ideaID int64, status model.IdeaStatus) {
	octx, cancel := outcomeContext(ctx)
	defer cancel()
	if err := e.store.SetIdeaStatus(octx, ideaID, status); err != nil {
		slog.Error("Failed to update idea status", "idea_id", ideaID, "status", status, "error", err)
	}
}
