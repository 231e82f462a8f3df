package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"shortsflow/internal/model"
	"shortsflow/internal/workflow"
)

func cleanIdeas(drafts []workflow.IdeaDraft) []workflow.IdeaDraft {
	result := make([]workflow.IdeaDraft, 0, len(drafts))
	for _, d := range drafts {
		d.Title = strings.TrimSpace(d.Title)
		if d.Title == "" {
			continue
		}
		d.Hook = strings.TrimSpace(d.Hook)
		d.Content = strings.TrimSpace(d.Content)
		d.CTA = strings.TrimSpace(d.CTA)
		d.Keywords = cleanKeywords(d.Keywords)
		result = append(result, d)
	}
	return result
}

func cleanKeywords(keywords []string) []string {
	result := make([]string, 0, len(keywords))
	seen := make(map[string]bool)

	for _, k := range keywords {
		k = strings.TrimSpace(strings.Trim(k, "#"))
		key := strings.ToLower(k)
		if k == "" || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, k)
	}

	return result
}

type scriptResponse struct {
	Script   string `json:"script"`
	Segments []struct {
		Time string `json:"time"`
		Text string `json:"text"`
	} `json:"segments"`
}

func parseScript(content string) (*workflow.ScriptDraft, error) {
	var resp scriptResponse
	if err := json.Unmarshal([]byte(stripFences(content)), &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	segments := make([]model.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		start, end, err := parseTimeRange(s.Time)
		if err != nil {
			return nil, err
		}
		segments = append(segments, model.Segment{Start: start, End: end, Text: strings.TrimSpace(s.Text)})
	}

	script := strings.TrimSpace(resp.Script)
	if script == "" {
		script = model.Segments(segments).Text()
	}
	if script == "" {
		return nil, fmt.Errorf("response has no script")
	}

	return &workflow.ScriptDraft{Script: script, Segments: segments}, nil
}

func fallbackScript(req workflow.ScriptRequest) *workflow.ScriptDraft {
	parts := make([]string, 0, 3)
	for _, p := range []string{req.Hook, req.Content, req.CTA} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	script := strings.Join(parts, " ")

	return &workflow.ScriptDraft{
		Script:   script,
		Segments: []model.Segment{{Start: 0, End: float64(req.Duration), Text: script}},
	}
}

// parseTimeRange reads ranges such as "0-5", "5 - 50s" or "50-60 sec".
func parseTimeRange(raw string) (float64, float64, error) {
	startRaw, endRaw, ok := strings.Cut(raw, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time range %q", raw)
	}

	start, err := parseSeconds(startRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time range %q: %w", raw, err)
	}
	end, err := parseSeconds(endRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time range %q: %w", raw, err)
	}
	if end < start {
		return 0, 0, fmt.Errorf("invalid time range %q: end before start", raw)
	}

	return start, end, nil
}

func parseSeconds(raw string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, suffix := range []string{"seconds", "second", "secs", "sec", "s"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}
	return strconv.ParseFloat(s, 64)
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	if idx := strings.LastIndex(content, "```"); idx >= 0 {
		content = content[:idx]
	}
	return strings.TrimSpace(content)
}

func parseJSONArray[T any](content string, keys []string) ([]T, error) {
	content = stripFences(content)

	var direct []T
	if err := json.Unmarshal([]byte(content), &direct); err == nil {
		return direct, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	for _, key := range keys {
		if raw, ok := wrapped[key]; ok {
			var items []T
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("parse %s: %w", key, err)
			}
			return items, nil
		}
	}

	for _, raw := range wrapped {
		var items []T
		if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
			return items, nil
		}
	}

	return nil, fmt.Errorf("no items found in response")
}
