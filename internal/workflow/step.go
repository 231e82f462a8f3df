package workflow

import (
	"context"
	"log/slog"
	"time"

	"shortsflow/internal/model"
)

const outcomeTimeout = 10 * time.Second

// outcomeContext keeps the values of ctx but not its cancellation, so a step
// interrupted by shutdown still records how it ended.
func outcomeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), outcomeTimeout)
}

// tracker carries the log context of one step invocation. The step body
// fills in channel and video references as it resolves them.
type tracker struct {
	engine    *Engine
	step      model.Step
	start     time.Time
	channelID *int64
	videoID   *int64
	onFailure func(ctx context.Context, msg string) error
}

func (t *tracker) bindChannel(id int64) { t.channelID = &id }

// bindVideo attaches the video row and the terminal state to persist if
// the step fails from here on.
func (t *tracker) bindVideo(id int64, onFailure func(ctx context.Context, msg string) error) {
	t.videoID = &id
	t.onFailure = onFailure
}

func (t *tracker) begin(ctx context.Context, message string) {
	t.append(ctx, model.LogStarted, message, "")
}

func (t *tracker) append(ctx context.Context, status model.LogStatus, message, errText string) {
	entry := &model.WorkflowLogEntry{
		ChannelID: t.channelID,
		VideoID:   t.videoID,
		Step:      t.step,
		Status:    status,
		Message:   message,
		Error:     errText,
	}
	if status != model.LogStarted {
		entry.DurationMS = t.engine.clock.Now().Sub(t.start).Milliseconds()
	}
	if err := t.engine.store.AppendLog(ctx, entry); err != nil {
		slog.Error("Failed to append workflow log", "step", t.step, "status", status, "error", err)
	}
}

// track runs body as one pipeline step. Validation inside body happens
// before begin is called; any error, including a validation error, persists
// the bound failure state and appends a failed entry before returning.
func (e *Engine) track(ctx context.Context, step model.Step, body func(t *tracker) (string, error)) error {
	t := &tracker{engine: e, step: step, start: e.clock.Now()}

	message, err := body(t)

	octx, cancel := outcomeContext(ctx)
	defer cancel()

	if err != nil {
		msg := Message(err)
		if t.onFailure != nil {
			if ferr := t.onFailure(octx, msg); ferr != nil {
				slog.Error("Failed to persist step failure", "step", step, "video_id", deref(t.videoID), "error", ferr)
			}
		}
		t.append(octx, model.LogFailed, string(step)+" failed", msg)
		slog.Warn("Step failed", "step", step, "channel_id", deref(t.channelID), "video_id", deref(t.videoID),
			"duration", e.clock.Now().Sub(t.start), "error", err)
		return err
	}

	t.append(octx, model.LogCompleted, message, "")
	slog.Info("Step completed", "step", step, "channel_id", deref(t.channelID), "video_id", deref(t.videoID),
		"duration", e.clock.Now().Sub(t.start))
	return nil
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
