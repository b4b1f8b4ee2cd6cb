package prompt

// Analysis is one stored analyzer run. Analyses are immutable once stored;
// the engine only reads them.
type Analysis struct {
	// ID is a ULID assigned when the analysis is persisted
	ID string `json:"id"`

	// Timestamp is the completion instant as a Unix timestamp (UTC)
	Timestamp int64 `json:"timestamp"`

	// Content is the raw analyzer output text
	Content string `json:"content"`

	// Structured is the typed payload parsed from the analyzer output
	Structured Structured `json:"structured"`
}

// Structured is the typed analysis payload. The three sequences are ordered;
// suggestion IDs are derived from positions within them.
type Structured struct {
	PromptRefinements   []Refinement    `json:"prompt_refinements"`
	ToolSuggestions     []ToolCandidate `json:"tool_suggestions"`
	PerformancePatterns []Pattern       `json:"performance_patterns"`
}

// Refinement is a proposed replacement for a prompt file.
type Refinement struct {
	TargetFile      string   `json:"target_file"`
	Description     string   `json:"description"`
	Rationale       string   `json:"rationale"`
	SuggestedChange string   `json:"suggested_change"`
	Confidence      float64  `json:"confidence"`
	Priority        Priority `json:"priority"`
}

// ToolCandidate is a proposed new tool. These are reported for manual review;
// the apply engine never builds tools.
type ToolCandidate struct {
	ToolName    string   `json:"tool_name"`
	Description string   `json:"description"`
	Rationale   string   `json:"rationale"`
	Confidence  float64  `json:"confidence"`
	Priority    Priority `json:"priority"`
}

// Pattern is an observed performance pattern. Opaque to the engine.
type Pattern struct {
	PatternType string `json:"pattern_type"`
	Description string `json:"description"`
	Frequency   int    `json:"frequency"`
}

// Preview returns the first n runes of the analysis content for listings.
func (a *Analysis) Preview(n int) string {
	runes := []rune(a.Content)
	if len(runes) <= n {
		return a.Content
	}
	return string(runes[:n]) + "..."
}
