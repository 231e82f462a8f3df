package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortsflow/internal/model"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mockDb.Close()
	})
	return New(sqlx.NewDb(mockDb, "sqlmock")), mock
}

// arrayArg matches the driver value a pq.StringArray is sent as.
type arrayArg string

func (a arrayArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && s == string(a)
}

var channelRowColumns = []string{
	"id", "name", "category", "topic", "description", "target_audience", "content_style", "keywords",
	"template_id", "video_duration", "auto_upload", "privacy_status", "total_videos", "total_views",
	"created_at", "updated_at",
}

func TestCreateChannelAppliesDefaults(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO channels`).
		WithArgs("Space Facts", "", "astronomy", "", "", "", arrayArg("{}"), "tpl-1", 60, false, "private").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(3, now, now))

	ch := &model.Channel{Name: "Space Facts", Topic: "astronomy", TemplateID: "tpl-1"}
	require.NoError(t, s.CreateChannel(context.Background(), ch))

	assert.Equal(t, int64(3), ch.ID)
	assert.Equal(t, 60, ch.VideoDuration)
	assert.Equal(t, "private", ch.PrivacyStatus)
}

func TestCreateChannelSendsKeywords(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		want     string
	}{
		{"nilKeywords", nil, "{}"},
		{"emptyKeywords", []string{}, "{}"},
		{"someKeywords", []string{"space", "stars"}, `{"space","stars"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			now := time.Now()

			mock.ExpectQuery(`INSERT INTO channels`).
				WithArgs("Space Facts", "", "astronomy", "", "", "", arrayArg(tt.want), "", 60, false, "private").
				WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))

			ch := &model.Channel{Name: "Space Facts", Topic: "astronomy", Keywords: tt.keywords}
			require.NoError(t, s.CreateChannel(context.Background(), ch))
		})
	}
}

func TestGetChannel(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows(channelRowColumns).AddRow(
		1, "Space Facts", "education", "astronomy", "", "students", "upbeat", []byte("{space,stars}"),
		"tpl-1", 45, true, "public", 4, 1200, now, now)
	mock.ExpectQuery(`SELECT .* FROM channels WHERE id = \$1`).WithArgs(1).WillReturnRows(rows)

	ch, err := s.GetChannel(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Space Facts", ch.Name)
	assert.Equal(t, []string{"space", "stars"}, []string(ch.Keywords))
	assert.Equal(t, 45, ch.VideoDuration)
	assert.True(t, ch.AutoUpload)
	assert.Equal(t, int64(1200), ch.TotalViews)
}

func TestGetChannelNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .* FROM channels WHERE id = \$1`).WithArgs(9).WillReturnError(sql.ErrNoRows)

	_, err := s.GetChannel(context.Background(), 9)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestIncrementChannelVideos(t *testing.T) {
	t.Run("updatesCounter", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE channels SET total_videos = total_videos \+ 1`).
			WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, s.IncrementChannelVideos(context.Background(), 1))
	})

	t.Run("missingChannel", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE channels SET total_videos`).
			WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, s.IncrementChannelVideos(context.Background(), 2), ErrNotFound)
	})
}

func TestRaiseChannelViewsUsesGreatest(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`SET total_views = GREATEST\(total_views, \$2\)`).
		WithArgs(1, 500).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, s.RaiseChannelViews(context.Background(), 1, 500))
}

func TestCreateIdeasInTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO ideas`).
		WithArgs(1, "Black holes", "hook", "content", "cta", arrayArg(`{"space"}`), "", sqlmock.AnyArg(), "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(10, now, now))
	mock.ExpectQuery(`INSERT INTO ideas`).
		WithArgs(1, "Dark matter", "", "", "", arrayArg("{}"), "", sqlmock.AnyArg(), "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))
	mock.ExpectCommit()

	ideas := []*model.Idea{
		{ChannelID: 1, Title: "Black holes", Hook: "hook", Content: "content", CTA: "cta", Keywords: []string{"space"}},
		{ChannelID: 1, Title: "Dark matter"},
	}
	require.NoError(t, s.CreateIdeas(context.Background(), ideas))

	assert.Equal(t, int64(10), ideas[0].ID)
	assert.Equal(t, int64(11), ideas[1].ID)
	assert.Equal(t, model.IdeaPending, ideas[1].Status)
}

func TestCreateIdeasRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO ideas`).WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := s.CreateIdeas(context.Background(), []*model.Idea{{ChannelID: 1, Title: "x"}})
	assert.ErrorContains(t, err, "constraint violation")
}

func TestGetIdeaDecodesSegments(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "channel_id", "title", "hook", "content", "cta", "keywords", "script", "segments", "status",
		"created_at", "updated_at",
	}).AddRow(5, 1, "Comets", "h", "c", "a", []byte("{}"), "full script",
		[]byte(`[{"start":0,"end":5,"text":"h"},{"start":5,"end":60,"text":"c a"}]`), "script_ready", now, now)
	mock.ExpectQuery(`SELECT .* FROM ideas WHERE id = \$1`).WithArgs(5).WillReturnRows(rows)

	idea, err := s.GetIdea(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, model.IdeaScriptReady, idea.Status)
	require.Len(t, idea.Segments, 2)
	assert.Equal(t, 60.0, idea.Segments[1].End)
	assert.Empty(t, idea.Keywords)
}

func TestListIdeas(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		query string
		args  []driver.Value
	}{
		{"withLimit", 3, `ORDER BY created_at, id LIMIT \$3`, []driver.Value{1, "pending", 3}},
		{"withoutLimit", 0, `ORDER BY created_at, id$`, []driver.Value{1, "pending"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectQuery(tt.query).
				WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status"}).
					AddRow(1, "A", "pending").
					AddRow(2, "B", "pending"))

			ideas, err := s.ListIdeas(context.Background(), 1, model.IdeaPending, tt.limit)
			require.NoError(t, err)
			assert.Len(t, ideas, 2)
			assert.Equal(t, "A", ideas[0].Title)
		})
	}
}

func TestUpdateVideo(t *testing.T) {
	s, mock := newMockStore(t)
	uploaded := time.Now()

	mock.ExpectExec(`UPDATE videos SET`).
		WithArgs(7, "Comets", "", "a.mp3", "", "v.mp4", "job-1", "yt1", "https://www.youtube.com/watch?v=yt1",
			1024, "uploaded", "", uploaded).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpdateVideo(context.Background(), &model.Video{
		ID: 7, Title: "Comets", AudioPath: "a.mp3", VideoPath: "v.mp4", RenderJobID: "job-1",
		PublishID: "yt1", PublishURL: "https://www.youtube.com/watch?v=yt1", FileSize: 1024,
		Status: model.VideoUploaded, UploadedAt: &uploaded,
	})
	assert.NoError(t, err)
}

func TestCountVideosByStatus(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM videos WHERE channel_id = \$1 AND status = ANY\(\$2\)`).
		WithArgs(1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := s.CountVideos(context.Background(), 1, model.VideoPending, model.VideoRendering)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAppendLog(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	channelID := int64(1)

	mock.ExpectQuery(`INSERT INTO workflow_logs`).
		WithArgs(channelID, nil, "tts", "failed", "tts failed", "no voice configured", 1500).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(99, now))

	entry := &model.WorkflowLogEntry{
		ChannelID:  &channelID,
		Step:       model.StepTTS,
		Status:     model.LogFailed,
		Message:    "tts failed",
		Error:      "no voice configured",
		DurationMS: 1500,
	}
	require.NoError(t, s.AppendLog(context.Background(), entry))
	assert.Equal(t, int64(99), entry.ID)
}

func TestListLogsNewestFirst(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "channel_id", "video_id", "step", "status", "message", "error", "duration_ms", "created_at"}).
		AddRow(2, 1, 4, "rendering", "started", "Rendering", "", 0, now).
		AddRow(1, 1, nil, "tts", "completed", "Audio saved", "", 800, now.Add(-time.Minute))
	mock.ExpectQuery(`FROM workflow_logs\s+WHERE channel_id = \$1\s+ORDER BY created_at DESC, id DESC\s+OFFSET \$2 LIMIT \$3`).
		WithArgs(1, 0, 10).
		WillReturnRows(rows)

	logs, err := s.ListLogs(context.Background(), 1, 0, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.LogStarted, logs[0].Status)
	require.NotNil(t, logs[0].VideoID)
	assert.Equal(t, int64(4), *logs[0].VideoID)
	assert.Nil(t, logs[1].VideoID)
}
