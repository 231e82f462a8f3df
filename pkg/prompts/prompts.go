package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultPrompts []byte

type Prompts struct {
	System SystemPrompts `yaml:"system"`
	Ideas  IdeaPrompts   `yaml:"ideas"`
	Script ScriptPrompts `yaml:"script"`
}

type SystemPrompts struct {
	Ideas  string `yaml:"ideas"`
	Script string `yaml:"script"`
}

type IdeaPrompts struct {
	Generate string `yaml:"generate"`
}

type ScriptPrompts struct {
	Generate string `yaml:"generate"`
}

type IdeasParams struct {
	Topic    string
	Audience string
	Style    string
	Count    int
}

type ScriptParams struct {
	Title    string
	Hook     string
	Content  string
	CTA      string
	Duration int
	BodyEnd  int
}

// Default returns the built-in prompts.
func Default() *Prompts {
	var p Prompts
	if err := yaml.Unmarshal(defaultPrompts, &p); err != nil {
		panic(fmt.Sprintf("embedded prompts: %v", err))
	}
	return &p
}

// LoadFrom reads prompts from path. Entries missing from the file keep
// their built-in text. An empty path returns the defaults.
func LoadFrom(path string) (*Prompts, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	return p, nil
}

func (p *Prompts) RenderIdeas(params IdeasParams) (string, error) {
	return render(p.Ideas.Generate, params)
}

func (p *Prompts) RenderScript(params ScriptParams) (string, error) {
	if params.BodyEnd == 0 {
		params.BodyEnd = max(params.Duration-10, 5)
	}
	return render(p.Script.Generate, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
