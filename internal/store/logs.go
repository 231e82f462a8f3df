package store

import (
	"context"
	"fmt"

	"shortsflow/internal/model"
)

func (s *Store) AppendLog(ctx context.Context, e *model.WorkflowLogEntry) error {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO workflow_logs (channel_id, video_id, step, status, message, error, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		e.ChannelID, e.VideoID, e.Step, e.Status, e.Message, e.Error, e.DurationMS,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert workflow log: %w", err)
	}
	return nil
}

// ListLogs returns a channel's log entries, newest first.
func (s *Store) ListLogs(ctx context.Context, channelID int64, offset, limit int) ([]model.WorkflowLogEntry, error) {
	var logs []model.WorkflowLogEntry
	err := s.db.SelectContext(ctx, &logs, `
		SELECT id, channel_id, video_id, step, status, message, error, duration_ms, created_at
		FROM workflow_logs
		WHERE channel_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`,
		channelID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list workflow logs: %w", err)
	}
	return logs, nil
}
