package store

import (
	"context"
	"fmt"

	"shortsflow/internal/model"
)

const channelColumns = `id, name, category, topic, description, target_audience, content_style, keywords,
	template_id, video_duration, auto_upload, privacy_status, total_videos, total_views, created_at, updated_at`

func (s *Store) CreateChannel(ctx context.Context, ch *model.Channel) error {
	if ch.VideoDuration <= 0 {
		ch.VideoDuration = 60
	}
	if ch.PrivacyStatus == "" {
		ch.PrivacyStatus = "private"
	}

	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO channels (name, category, topic, description, target_audience, content_style, keywords,
			template_id, video_duration, auto_upload, privacy_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		ch.Name, ch.Category, ch.Topic, ch.Description, ch.TargetAudience, ch.ContentStyle, keywordArray(ch.Keywords),
		ch.TemplateID, ch.VideoDuration, ch.AutoUpload, ch.PrivacyStatus,
	).Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

func (s *Store) GetChannel(ctx context.Context, id int64) (*model.Channel, error) {
	var ch model.Channel
	err := s.db.GetContext(ctx, &ch, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "channel", id)
	}
	return &ch, nil
}

func (s *Store) ListChannels(ctx context.Context) ([]model.Channel, error) {
	var channels []model.Channel
	if err := s.db.SelectContext(ctx, &channels, `SELECT `+channelColumns+` FROM channels ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

func (s *Store) IncrementChannelVideos(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE channels SET total_videos = total_videos + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment channel videos: %w", err)
	}
	return expectRow(res, "channel", id)
}

// RaiseChannelViews sets total_views to views unless the stored value is higher.
func (s *Store) RaiseChannelViews(ctx context.Context, id, views int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE channels SET total_views = GREATEST(total_views, $2), updated_at = NOW() WHERE id = $1`, id, views)
	if err != nil {
		return fmt.Errorf("update channel views: %w", err)
	}
	return expectRow(res, "channel", id)
}
