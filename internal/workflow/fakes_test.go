package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"shortsflow/internal/model"
)

// memStore rejects writes on a cancelled context, like database/sql does.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	channels map[int64]*model.Channel
	ideas    map[int64]*model.Idea
	videos   map[int64]*model.Video
	logs     []model.WorkflowLogEntry
}

func newMemStore() *memStore {
	return &memStore{
		channels: make(map[int64]*model.Channel),
		ideas:    make(map[int64]*model.Idea),
		videos:   make(map[int64]*model.Video),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addChannel(ch model.Channel) *model.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch.ID = s.id()
	s.channels[ch.ID] = &ch
	return &ch
}

func (s *memStore) addIdea(idea model.Idea) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	idea.ID = s.id()
	s.ideas[idea.ID] = &idea
	return idea.ID
}

func (s *memStore) GetChannel(_ context.Context, id int64) (*model.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil, fmt.Errorf("channel %d: %w", id, model.ErrNotFound)
	}
	c := *ch
	return &c, nil
}

func (s *memStore) IncrementChannelVideos(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[id].TotalVideos++
	return nil
}

func (s *memStore) RaiseChannelViews(_ context.Context, id, views int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.channels[id]
	ch.TotalViews = max(ch.TotalViews, views)
	return nil
}

func (s *memStore) CreateIdeas(_ context.Context, ideas []*model.Idea) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, idea := range ideas {
		idea.ID = s.id()
		c := *idea
		s.ideas[idea.ID] = &c
	}
	return nil
}

func (s *memStore) GetIdea(_ context.Context, id int64) (*model.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idea, ok := s.ideas[id]
	if !ok {
		return nil, fmt.Errorf("idea %d: %w", id, model.ErrNotFound)
	}
	c := *idea
	return &c, nil
}

func (s *memStore) UpdateIdeaScript(_ context.Context, idea *model.Idea) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.ideas[idea.ID]
	if !ok {
		return model.ErrNotFound
	}
	stored.Script = idea.Script
	stored.Segments = slices.Clone(idea.Segments)
	stored.Status = idea.Status
	return nil
}

func (s *memStore) SetIdeaStatus(ctx context.Context, id int64, status model.IdeaStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idea, ok := s.ideas[id]
	if !ok {
		return model.ErrNotFound
	}
	idea.Status = status
	return nil
}

func (s *memStore) ListIdeas(_ context.Context, channelID int64, status model.IdeaStatus, limit int) ([]model.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Idea
	for _, idea := range s.ideas {
		if idea.ChannelID == channelID && idea.Status == status {
			out = append(out, *idea)
		}
	}
	slices.SortFunc(out, func(a, b model.Idea) int { return int(a.ID - b.ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) CreateVideo(ctx context.Context, v *model.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.id()
	c := *v
	s.videos[v.ID] = &c
	return nil
}

func (s *memStore) GetVideo(_ context.Context, id int64) (*model.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, fmt.Errorf("video %d: %w", id, model.ErrNotFound)
	}
	c := *v
	return &c, nil
}

func (s *memStore) UpdateVideo(ctx context.Context, v *model.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[v.ID]; !ok {
		return model.ErrNotFound
	}
	c := *v
	s.videos[v.ID] = &c
	return nil
}

func (s *memStore) UpdateVideoStats(_ context.Context, id, views, likes, comments int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.videos[id]
	v.Views, v.Likes, v.Comments = views, likes, comments
	return nil
}

func (s *memStore) ListVideos(_ context.Context, channelID int64, statuses ...model.VideoStatus) ([]model.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Video
	for _, v := range s.videos {
		if v.ChannelID == channelID && (len(statuses) == 0 || slices.Contains(statuses, v.Status)) {
			out = append(out, *v)
		}
	}
	slices.SortFunc(out, func(a, b model.Video) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *memStore) CountVideos(ctx context.Context, channelID int64, statuses ...model.VideoStatus) (int, error) {
	videos, err := s.ListVideos(ctx, channelID, statuses...)
	return len(videos), err
}

func (s *memStore) AppendLog(ctx context.Context, e *model.WorkflowLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	s.logs = append(s.logs, *e)
	return nil
}

func (s *memStore) ListLogs(_ context.Context, channelID int64, offset, limit int) ([]model.WorkflowLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WorkflowLogEntry
	for i := len(s.logs) - 1; i >= 0; i-- {
		if e := s.logs[i]; e.ChannelID != nil && *e.ChannelID == channelID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) videoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.videos)
}

func (s *memStore) entries(step model.Step, status model.LogStatus) []model.WorkflowLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WorkflowLogEntry
	for _, e := range s.logs {
		if e.Step == step && e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) lastEntry(step model.Step) model.WorkflowLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].Step == step {
			return s.logs[i]
		}
	}
	return model.WorkflowLogEntry{}
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps++
	c.now = c.now.Add(d)
	return ctx.Err()
}

type fakeIdeas struct {
	drafts []IdeaDraft
	err    error
	calls  int
	last   IdeaRequest
}

func (f *fakeIdeas) GenerateIdeas(_ context.Context, req IdeaRequest) ([]IdeaDraft, error) {
	f.calls++
	f.last = req
	return f.drafts, f.err
}

type fakeScripts struct {
	emptySegments bool
	err           error
	calls         int
	last          ScriptRequest
}

func (f *fakeScripts) WriteScript(_ context.Context, req ScriptRequest) (*ScriptDraft, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	parts := []string{req.Hook, req.Content, req.CTA}
	draft := &ScriptDraft{Script: strings.Join(parts, " ")}
	if f.emptySegments {
		return draft, nil
	}
	d := float64(req.Duration)
	draft.Segments = []model.Segment{
		{Start: 0, End: 5, Text: req.Hook},
		{Start: 5, End: d - 10, Text: req.Content},
		{Start: d - 10, End: d, Text: req.CTA},
	}
	return draft, nil
}

type fakeSpeech struct {
	failOn string
	calls  int
	paths  []string
}

func (f *fakeSpeech) Synthesize(_ context.Context, text, outputPath string) (string, error) {
	f.calls++
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return "", errors.New("voice quota exceeded")
	}
	f.paths = append(f.paths, outputPath)
	return outputPath, nil
}

type fakeRenderer struct {
	mu        sync.Mutex
	states    []RenderStatus
	submitErr error
	jobs      int
	polls     int
	requests  []RenderRequest
	onStatus  func()
}

func (f *fakeRenderer) Submit(_ context.Context, req RenderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.jobs++
	f.requests = append(f.requests, req)
	return fmt.Sprintf("job-%d", f.jobs), nil
}

// Status walks through states and repeats the last one.
func (f *fakeRenderer) Status(_ context.Context, jobID string) (*RenderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.onStatus != nil {
		f.onStatus()
	}
	if len(f.states) == 0 {
		return &RenderStatus{State: RenderSucceeded, URL: "https://cdn.example.com/" + jobID + ".mp4"}, nil
	}
	st := f.states[0]
	if len(f.states) > 1 {
		f.states = f.states[1:]
	}
	return &st, nil
}

func (f *fakeRenderer) Download(_ context.Context, _ string, destPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(destPath, []byte("fake mp4 data"), 0644); err != nil {
		return "", err
	}
	return destPath, nil
}

type fakePublisher struct {
	err   error
	calls int
	last  PublishRequest
}

func (f *fakePublisher) Publish(_ context.Context, req PublishRequest) (*PublishResult, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	id := fmt.Sprintf("yt%d", f.calls)
	return &PublishResult{ID: id, URL: "https://www.youtube.com/watch?v=" + id}, nil
}

type fakeStats struct {
	stats map[string]VideoStats
}

func (f *fakeStats) Stats(_ context.Context, _ []string) (map[string]VideoStats, error) {
	return f.stats, nil
}

type tempPaths struct {
	dir string
}

func (p tempPaths) AudioPath(ideaID int64, at time.Time) string {
	return filepath.Join(p.dir, "audio", fmt.Sprintf("audio_%d_%d.mp3", ideaID, at.UnixNano()))
}

func (p tempPaths) VideoPath(videoID int64, at time.Time) string {
	return filepath.Join(p.dir, "videos", fmt.Sprintf("video_%d_%d.mp4", videoID, at.UnixNano()))
}

type harness struct {
	store     *memStore
	clock     *fakeClock
	ideas     *fakeIdeas
	scripts   *fakeScripts
	speech    *fakeSpeech
	renderer  *fakeRenderer
	publisher *fakePublisher
	stats     *fakeStats
	engine    *Engine
}

func newHarness(dir string) *harness {
	h := &harness{
		store:     newMemStore(),
		clock:     newFakeClock(),
		ideas:     &fakeIdeas{},
		scripts:   &fakeScripts{},
		speech:    &fakeSpeech{},
		renderer:  &fakeRenderer{},
		publisher: &fakePublisher{},
		stats:     &fakeStats{},
	}
	h.engine = New(Options{
		Store:     h.store,
		Ideas:     h.ideas,
		Scripts:   h.scripts,
		Speech:    h.speech,
		Renderer:  h.renderer,
		Publisher: h.publisher,
		Stats:     h.stats,
		Paths:     tempPaths{dir: dir},
		Clock:     h.clock,
		Poll:      PollPolicy{Interval: 5 * time.Second, MaxWait: 30 * time.Second},
		NewRunID:  func() string { return "run-test" },
	})
	return h
}

func (h *harness) channel(mutate ...func(*model.Channel)) *model.Channel {
	ch := model.Channel{
		Name:          "Space Facts",
		Topic:         "astronomy",
		TemplateID:    "tpl-1",
		VideoDuration: 60,
		PrivacyStatus: "private",
		Keywords:      []string{"space"},
	}
	for _, m := range mutate {
		m(&ch)
	}
	return h.store.addChannel(ch)
}

func (h *harness) pendingIdea(channelID int64, title string) int64 {
	return h.store.addIdea(model.Idea{
		ChannelID: channelID,
		Title:     title,
		Hook:      title + " hook",
		Content:   title + " content",
		CTA:       "Follow for more",
		Keywords:  []string{"space", "facts"},
		Status:    model.IdeaPending,
	})
}
