package store

import (
	"context"
	"fmt"

	"shortsflow/internal/model"
)

const ideaColumns = `id, channel_id, title, hook, content, cta, keywords, script, segments, status, created_at, updated_at`

// CreateIdeas inserts all ideas in one transaction and fills in their ids.
func (s *Store) CreateIdeas(ctx context.Context, ideas []*model.Idea) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, idea := range ideas {
		if idea.Status == "" {
			idea.Status = model.IdeaPending
		}
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO ideas (channel_id, title, hook, content, cta, keywords, script, segments, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at`,
			idea.ChannelID, idea.Title, idea.Hook, idea.Content, idea.CTA, keywordArray(idea.Keywords),
			idea.Script, idea.Segments, idea.Status,
		).Scan(&idea.ID, &idea.CreatedAt, &idea.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert idea %q: %w", idea.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ideas: %w", err)
	}
	return nil
}

func (s *Store) GetIdea(ctx context.Context, id int64) (*model.Idea, error) {
	var idea model.Idea
	err := s.db.GetContext(ctx, &idea, `SELECT `+ideaColumns+` FROM ideas WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "idea", id)
	}
	return &idea, nil
}

func (s *Store) UpdateIdeaScript(ctx context.Context, idea *model.Idea) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ideas SET script = $2, segments = $3, status = $4, updated_at = NOW()
		WHERE id = $1`,
		idea.ID, idea.Script, idea.Segments, idea.Status)
	if err != nil {
		return fmt.Errorf("update idea script: %w", err)
	}
	return expectRow(res, "idea", idea.ID)
}

func (s *Store) SetIdeaStatus(ctx context.Context, id int64, status model.IdeaStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE ideas SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update idea status: %w", err)
	}
	return expectRow(res, "idea", id)
}

// ListIdeas returns a channel's ideas in the given status, oldest first.
// A limit of zero or less returns all of them.
func (s *Store) ListIdeas(ctx context.Context, channelID int64, status model.IdeaStatus, limit int) ([]model.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM ideas WHERE channel_id = $1 AND status = $2 ORDER BY created_at, id`
	args := []any{channelID, status}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	var ideas []model.Idea
	if err := s.db.SelectContext(ctx, &ideas, query, args...); err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	return ideas, nil
}
