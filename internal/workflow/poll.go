package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shortsflow/internal/model"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollMaxWait  = 600 * time.Second
)

type PollPolicy struct {
	Interval time.Duration
	MaxWait  time.Duration
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: DefaultPollInterval, MaxWait: DefaultPollMaxWait}
}

func (p PollPolicy) withDefaults() PollPolicy {
	if p.Interval <= 0 {
		p.Interval = DefaultPollInterval
	}
	if p.MaxWait <= 0 {
		p.MaxWait = DefaultPollMaxWait
	}
	return p
}

// waitForRender polls the job until it reaches a terminal state or the
// policy's MaxWait elapses on clock.
func waitForRender(ctx context.Context, r VideoRenderer, clock Clock, policy PollPolicy, jobID string) (string, error) {
	policy = policy.withDefaults()
	start := clock.Now()

	for {
		st, err := r.Status(ctx, jobID)
		if err != nil {
			return "", classify(model.StepRendering, ErrExternalService, fmt.Errorf("render status %s: %w", jobID, err))
		}

		switch strings.ToLower(st.State) {
		case RenderSucceeded:
			if st.URL == "" {
				return "", stepErr(model.StepRendering, ErrExternalService, "render %s succeeded without a download url", jobID)
			}
			return st.URL, nil
		case RenderFailed:
			msg := st.Error
			if msg == "" {
				msg = "render failed"
			}
			return "", stepErr(model.StepRendering, ErrExternalService, "%s", msg)
		}

		elapsed := clock.Now().Sub(start)
		if elapsed >= policy.MaxWait {
			return "", stepErr(model.StepRendering, ErrTimeout, "render %s not finished after %s", jobID, policy.MaxWait)
		}

		slog.Debug("Render in progress", "job_id", jobID, "state", st.State, "elapsed", elapsed)
		if err := clock.Sleep(ctx, policy.Interval); err != nil {
			return "", classify(model.StepRendering, ErrTimeout, err)
		}
	}
}
