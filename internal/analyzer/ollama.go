package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/fileset"
	"github.com/graft-sh/graft/internal/prompt"
)

const analysisSystemPrompt = `You are a meta-learning analyst for an AI agent.
Review the agent's recent activity and its current prompt files, then respond
with a single JSON object of this shape:

{
  "summary": "one paragraph of findings",
  "prompt_refinements": [
    {"target_file": "file.md", "description": "...", "rationale": "...",
     "suggested_change": "full replacement text", "confidence": 0.0,
     "priority": "high|medium|low"}
  ],
  "tool_suggestions": [
    {"tool_name": "...", "description": "...", "rationale": "...",
     "confidence": 0.0, "priority": "high|medium|low"}
  ],
  "performance_patterns": [
    {"pattern_type": "...", "description": "...", "frequency": 0}
  ]
}

Only suggest a refinement when the transcript shows a concrete failure the
change would address. Empty arrays are a valid answer.`

// Ollama runs analyses against a local ollama server.
type Ollama struct {
	client  *api.Client
	model   string
	history HistorySource
	prompts fileset.Provider
}

// NewOllama constructs an analyzer from the environment (OLLAMA_HOST et al).
func NewOllama(model string, history HistorySource, prompts fileset.Provider) (*Ollama, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return &Ollama{client: client, model: model, history: history, prompts: prompts}, nil
}

func (o *Ollama) Run(ctx context.Context, contextID string, maxHistory int) (*prompt.Analysis, error) {
	transcript, err := o.history.Recent(contextID, maxHistory)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	files, err := o.prompts.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("## Current prompt files\n\n")
	for _, f := range files {
		fmt.Fprintf(&sb, "### %s\n\n%s\n\n", f.Path, f.Content)
	}
	sb.WriteString("## Recent activity\n\n")
	if transcript == "" {
		sb.WriteString("(no transcript available)\n")
	} else {
		sb.WriteString(transcript)
		sb.WriteString("\n")
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  o.model,
		System: analysisSystemPrompt,
		Prompt: sb.String(),
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
	}

	var out strings.Builder
	err = o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return nil, errors.NewAnalysisFailed(err)
	}

	content := out.String()
	structured, perr := ParseStructured(content)
	if perr != nil {
		// A model that ignored the JSON instructions still produced a
		// reviewable record; keep the raw content with no suggestions.
		structured = prompt.Structured{}
	}
	return &prompt.Analysis{Content: content, Structured: structured}, nil
}
