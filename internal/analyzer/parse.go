package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/graft-sh/graft/internal/prompt"
)

// ParseStructured extracts the structured payload from raw analyzer output.
// The output may surround the JSON object with prose; the span from the first
// "{" to the last "}" is taken as the payload. Priorities are normalized and
// entries without their required target are dropped.
func ParseStructured(content string) (prompt.Structured, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return prompt.Structured{}, fmt.Errorf("no JSON object in analyzer output")
	}

	var raw prompt.Structured
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return prompt.Structured{}, fmt.Errorf("parse analyzer output: %w", err)
	}

	var out prompt.Structured
	for _, r := range raw.PromptRefinements {
		if r.TargetFile == "" {
			continue
		}
		r.Priority = prompt.NormalizePriority(r.Priority, prompt.PriorityMedium)
		out.PromptRefinements = append(out.PromptRefinements, r)
	}
	for _, t := range raw.ToolSuggestions {
		if t.ToolName == "" {
			continue
		}
		t.Priority = prompt.NormalizePriority(t.Priority, prompt.PriorityLow)
		out.ToolSuggestions = append(out.ToolSuggestions, t)
	}
	out.PerformancePatterns = raw.PerformancePatterns
	return out, nil
}
