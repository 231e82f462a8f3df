package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	yt "google.golang.org/api/youtube/v3"

	"shortsflow/internal/workflow"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(nil, Options{
		DefaultTags: []string{"shorts"},
		Endpoint:    server.URL + "/",
		HTTPClient:  server.Client(),
	})
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, []byte("fake mp4"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readMetadata(t *testing.T, r *http.Request) yt.Video {
	t.Helper()
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("parse content type: %v", err)
	}

	part, err := multipart.NewReader(r.Body, params["boundary"]).NextPart()
	if err != nil {
		t.Fatalf("read metadata part: %v", err)
	}

	var video yt.Video
	if err := json.NewDecoder(part).Decode(&video); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	return video
}

func TestPublish(t *testing.T) {
	var got yt.Video
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/youtube/v3/videos") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if parts := strings.Join(r.URL.Query()["part"], ","); parts != "snippet,status" {
			t.Errorf("parts = %q, want snippet,status", parts)
		}
		got = readMetadata(t, r)
		_, _ = w.Write([]byte(`{"id": "abc123"}`))
	})

	res, err := client.Publish(context.Background(), workflow.PublishRequest{
		FilePath:    writeVideo(t),
		Title:       "Five habits",
		Description: "Hook\n\nBody\n\n#habits",
		Tags:        []string{"habits", "focus"},
		Privacy:     "unlisted",
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if res.ID != "abc123" || res.URL != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("unexpected result %+v", res)
	}
	if got.Snippet == nil || got.Snippet.CategoryId != "22" || got.Snippet.Title != "Five habits" {
		t.Errorf("unexpected snippet %+v", got.Snippet)
	}
	if len(got.Snippet.Tags) != 2 {
		t.Errorf("tags = %v", got.Snippet.Tags)
	}
	if got.Status == nil || got.Status.PrivacyStatus != "unlisted" || got.Status.SelfDeclaredMadeForKids {
		t.Errorf("unexpected status %+v", got.Status)
	}
}

func TestPublishDefaults(t *testing.T) {
	var got yt.Video
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = readMetadata(t, r)
		_, _ = w.Write([]byte(`{"id": "def456"}`))
	})

	if _, err := client.Publish(context.Background(), workflow.PublishRequest{
		FilePath: writeVideo(t),
		Title:    strings.Repeat("x", 150),
	}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if got.Status.PrivacyStatus != "private" {
		t.Errorf("privacy = %q, want private", got.Status.PrivacyStatus)
	}
	if len(got.Snippet.Tags) != 1 || got.Snippet.Tags[0] != "shorts" {
		t.Errorf("tags = %v, want default tags", got.Snippet.Tags)
	}
	if len([]rune(got.Snippet.Title)) != 100 {
		t.Errorf("title length = %d, want 100", len([]rune(got.Snippet.Title)))
	}
}

func TestPublishErrors(t *testing.T) {
	t.Run("apiError", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "quotaExceeded"}}`))
		})

		_, err := client.Publish(context.Background(), workflow.PublishRequest{FilePath: writeVideo(t), Title: "t"})
		if err == nil || !strings.Contains(err.Error(), "quotaExceeded") {
			t.Errorf("expected quota error, got %v", err)
		}
	})

	t.Run("missingFile", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})

		if _, err := client.Publish(context.Background(), workflow.PublishRequest{FilePath: "/nonexistent.mp4"}); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("notConfigured", func(t *testing.T) {
		client := NewClient(NewAuth("", "", "/tmp/none.json"), Options{})
		_, err := client.Publish(context.Background(), workflow.PublishRequest{FilePath: writeVideo(t)})
		if !errors.Is(err, workflow.ErrConfigurationMissing) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("notAuthenticated", func(t *testing.T) {
		client := NewClient(NewAuth("id", "secret", filepath.Join(t.TempDir(), "token.json")), Options{})
		_, err := client.Publish(context.Background(), workflow.PublishRequest{FilePath: writeVideo(t)})
		if !errors.Is(err, workflow.ErrConfigurationMissing) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}

func TestStats(t *testing.T) {
	var ids []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		ids = append(ids, r.URL.Query()["id"]...)
		_, _ = w.Write([]byte(`{"items": [
			{"id": "a", "statistics": {"viewCount": "120", "likeCount": "8", "commentCount": "2"}},
			{"id": "b", "statistics": {"viewCount": "5"}}
		]}`))
	})

	stats, err := client.Stats(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	if stats["a"] != (workflow.VideoStats{Views: 120, Likes: 8, Comments: 2}) {
		t.Errorf("stats[a] = %+v", stats["a"])
	}
	if stats["b"].Views != 5 {
		t.Errorf("stats[b] = %+v", stats["b"])
	}
	if len(ids) != 2 {
		t.Errorf("requested ids = %v", ids)
	}
}

func TestStatsBatches(t *testing.T) {
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`{"items": []}`))
	})

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = "v"
	}

	if _, err := client.Stats(context.Background(), ids); err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if requests != 3 {
		t.Errorf("requests = %d, want 3", requests)
	}
}

func TestStatsEmpty(t *testing.T) {
	client := NewClient(nil, Options{})
	stats, err := client.Stats(context.Background(), nil)
	if err != nil || len(stats) != 0 {
		t.Errorf("Stats(nil) = %v, %v", stats, err)
	}
}
