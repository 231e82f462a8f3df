package llm

import (
	"context"
	"fmt"
	"log/slog"

	"shortsflow/internal/workflow"
	"shortsflow/pkg/prompts"
)

// Completer sends a system and a user prompt to a chat model that was asked
// for a JSON object and returns the raw reply.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

var (
	_ workflow.IdeaGenerator = (*Writer)(nil)
	_ workflow.ScriptWriter  = (*Writer)(nil)
)

// Writer turns a Completer into the idea and script ports of the workflow.
type Writer struct {
	completer Completer
	prompts   *prompts.Prompts
}

func NewWriter(c Completer, p *prompts.Prompts) *Writer {
	if p == nil {
		p = prompts.Default()
	}
	return &Writer{completer: c, prompts: p}
}

// GenerateIdeas returns no ideas, and no error, when the model answers
// with something that is not an idea list.
func (w *Writer) GenerateIdeas(ctx context.Context, req workflow.IdeaRequest) ([]workflow.IdeaDraft, error) {
	prompt, err := w.prompts.RenderIdeas(prompts.IdeasParams{
		Topic:    req.Topic,
		Audience: req.Audience,
		Style:    req.Style,
		Count:    req.Count,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	content, err := w.completer.Complete(ctx, w.prompts.System.Ideas, prompt)
	if err != nil {
		return nil, err
	}

	drafts, err := parseJSONArray[workflow.IdeaDraft](content, []string{"ideas", "results", "items"})
	if err != nil {
		slog.Warn("Unusable idea response", "error", err)
		slog.Debug("LLM ideas raw response", "content", content)
		return nil, nil
	}

	return cleanIdeas(drafts), nil
}

// WriteScript falls back to a single full-length segment made of the hook,
// content and CTA when the response cannot be parsed.
func (w *Writer) WriteScript(ctx context.Context, req workflow.ScriptRequest) (*workflow.ScriptDraft, error) {
	prompt, err := w.prompts.RenderScript(prompts.ScriptParams{
		Title:    req.Title,
		Hook:     req.Hook,
		Content:  req.Content,
		CTA:      req.CTA,
		Duration: req.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	content, err := w.completer.Complete(ctx, w.prompts.System.Script, prompt)
	if err != nil {
		return nil, err
	}

	draft, err := parseScript(content)
	if err != nil {
		slog.Warn("Unusable script response, using fallback", "title", req.Title, "error", err)
		return fallbackScript(req), nil
	}
	return draft, nil
}
