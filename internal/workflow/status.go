package workflow

import (
	"context"
	"errors"
	"fmt"

	"shortsflow/internal/model"
)

const (
	StateIdle    = "idle"
	StateRunning = "running"
)

type ChannelStatus struct {
	ChannelID        int64
	ChannelName      string
	State            string
	CurrentStep      model.Step
	InProgressVideos int
	TotalVideos      int64
	TotalViews       int64
	RecentLogs       []model.WorkflowLogEntry
}

// Status approximates what the channel is doing from its latest log entry.
func (e *Engine) Status(ctx context.Context, channelID int64) (*ChannelStatus, error) {
	ch, err := e.channel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	logs, err := e.store.ListLogs(ctx, ch.ID, 0, recentLogLimit)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	inProgress, err := e.store.CountVideos(ctx, ch.ID, model.VideoPending, model.VideoRendering)
	if err != nil {
		return nil, fmt.Errorf("count videos: %w", err)
	}

	st := &ChannelStatus{
		ChannelID:        ch.ID,
		ChannelName:      ch.Name,
		State:            StateIdle,
		InProgressVideos: inProgress,
		TotalVideos:      ch.TotalVideos,
		TotalViews:       ch.TotalViews,
		RecentLogs:       logs,
	}
	if len(logs) > 0 {
		st.CurrentStep = logs[0].Step
		if logs[0].Status == model.LogStarted {
			st.State = StateRunning
		}
	}
	return st, nil
}

// Logs returns the channel's log entries, newest first.
func (e *Engine) Logs(ctx context.Context, channelID int64, offset, limit int) ([]model.WorkflowLogEntry, error) {
	if _, err := e.channel(ctx, channelID); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultLogLimit
	}

	logs, err := e.store.ListLogs(ctx, channelID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return logs, nil
}

// SyncStats refreshes engagement counters of uploaded videos and returns
// the channel's total views. The total never decreases.
func (e *Engine) SyncStats(ctx context.Context, channelID int64) (int64, error) {
	ch, err := e.channel(ctx, channelID)
	if err != nil {
		return 0, err
	}
	if e.stats == nil {
		return 0, fmt.Errorf("%w: stats fetcher not configured", ErrConfigurationMissing)
	}

	videos, err := e.store.ListVideos(ctx, ch.ID, model.VideoUploaded)
	if err != nil {
		return 0, fmt.Errorf("list uploaded videos: %w", err)
	}

	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		if v.PublishID != "" {
			ids = append(ids, v.PublishID)
		}
	}
	if len(ids) == 0 {
		return ch.TotalViews, nil
	}

	stats, err := e.stats.Stats(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("%w: fetch stats: %w", ErrExternalService, err)
	}

	var total int64
	for _, v := range videos {
		s, ok := stats[v.PublishID]
		if !ok {
			total += v.Views
			continue
		}
		if err := e.store.UpdateVideoStats(ctx, v.ID, s.Views, s.Likes, s.Comments); err != nil {
			return 0, fmt.Errorf("save stats for video %d: %w", v.ID, err)
		}
		total += s.Views
	}

	if err := e.store.RaiseChannelViews(ctx, ch.ID, total); err != nil {
		return 0, fmt.Errorf("save channel views: %w", err)
	}
	return max(ch.TotalViews, total), nil
}

func (e *Engine) channel(ctx context.Context, id int64) (*model.Channel, error) {
	ch, err := e.store.GetChannel(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: channel %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load channel %d: %w", id, err)
	}
	return ch, nil
}
