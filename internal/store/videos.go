package store

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"shortsflow/internal/model"
)

const videoColumns = `id, channel_id, idea_id, title, description, audio_path, subtitle_path, video_path,
	render_job_id, publish_id, publish_url, file_size, status, error_message, views, likes, comments,
	created_at, updated_at, uploaded_at`

func (s *Store) CreateVideo(ctx context.Context, v *model.Video) error {
	if v.Status == "" {
		v.Status = model.VideoPending
	}

	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO videos (channel_id, idea_id, title, description, audio_path, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		v.ChannelID, v.IdeaID, v.Title, v.Description, v.AudioPath, v.Status,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (s *Store) GetVideo(ctx context.Context, id int64) (*model.Video, error) {
	var v model.Video
	err := s.db.GetContext(ctx, &v, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "video", id)
	}
	return &v, nil
}

// UpdateVideo writes every mutable column of v.
func (s *Store) UpdateVideo(ctx context.Context, v *model.Video) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE videos SET
			title = $2, description = $3, audio_path = $4, subtitle_path = $5, video_path = $6,
			render_job_id = $7, publish_id = $8, publish_url = $9, file_size = $10, status = $11,
			error_message = $12, uploaded_at = $13, updated_at = NOW()
		WHERE id = $1`,
		v.ID, v.Title, v.Description, v.AudioPath, v.SubtitlePath, v.VideoPath,
		v.RenderJobID, v.PublishID, v.PublishURL, v.FileSize, v.Status,
		v.ErrorMessage, v.UploadedAt)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	return expectRow(res, "video", v.ID)
}

func (s *Store) UpdateVideoStats(ctx context.Context, id, views, likes, comments int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE videos SET views = $2, likes = $3, comments = $4, updated_at = NOW()
		WHERE id = $1`,
		id, views, likes, comments)
	if err != nil {
		return fmt.Errorf("update video stats: %w", err)
	}
	return expectRow(res, "video", id)
}

// ListVideos returns a channel's videos, newest first. With no statuses
// every video is returned.
func (s *Store) ListVideos(ctx context.Context, channelID int64, statuses ...model.VideoStatus) ([]model.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE channel_id = $1`
	args := []any{channelID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, statusArray(statuses))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var videos []model.Video
	if err := s.db.SelectContext(ctx, &videos, query, args...); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

func (s *Store) CountVideos(ctx context.Context, channelID int64, statuses ...model.VideoStatus) (int, error) {
	query := `SELECT COUNT(*) FROM videos WHERE channel_id = $1`
	args := []any{channelID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, statusArray(statuses))
	}

	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}
	return n, nil
}

func statusArray(statuses []model.VideoStatus) pq.StringArray {
	out := make(pq.StringArray, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
