package prompt

import "fmt"

// SuggestionType is the tagged variant of a suggestion. Only the fields valid
// for the variant are populated: TargetFile/SuggestedChange for refinements,
// ToolName for new tools.
type SuggestionType string

const (
	TypePromptRefinement SuggestionType = "prompt_refinement"
	TypeNewTool          SuggestionType = "new_tool"
)

// Status is the suggestion lifecycle state. A suggestion starts pending and
// transitions exactly once to a terminal state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApplied  Status = "applied"
	StatusRejected Status = "rejected"
)

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApplied, StatusRejected:
		return true
	}
	return false
}

// Priority ranks suggestion urgency.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// NormalizePriority returns p if valid, otherwise fallback.
func NormalizePriority(p, fallback Priority) Priority {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p
	}
	return fallback
}

// Suggestion is a reviewable change candidate extracted from an analysis.
// Its ID is deterministic in (analysis, type, index), so re-extraction from
// the same analysis always reproduces the same IDs.
type Suggestion struct {
	ID         string         `json:"id"`
	AnalysisID string         `json:"analysis_id"`
	Type       SuggestionType `json:"type"`

	// Ord is the index within the type sequence of the source analysis
	Ord int `json:"-"`

	// TargetFile and SuggestedChange are set for prompt_refinement only
	TargetFile      string `json:"target_file,omitempty"`
	SuggestedChange string `json:"suggested_change,omitempty"`

	// ToolName is set for new_tool only
	ToolName string `json:"tool_name,omitempty"`

	Description string   `json:"description"`
	Rationale   string   `json:"rationale"`
	Confidence  float64  `json:"confidence"`
	Priority    Priority `json:"priority"`

	Status Status `json:"status"`

	// AppliedVersion is the backup snapshot created at apply time (applied only)
	AppliedVersion *string `json:"applied_version,omitempty"`

	CreatedAt  int64  `json:"created_at"`
	ResolvedAt *int64 `json:"resolved_at,omitempty"`
}

// RefinementID derives the deterministic suggestion ID for the i-th prompt
// refinement of an analysis.
func RefinementID(analysisID string, i int) string {
	return fmt.Sprintf("%s_ref_%d", analysisID, i)
}

// ToolSuggestionID derives the deterministic suggestion ID for the i-th tool
// suggestion of an analysis.
func ToolSuggestionID(analysisID string, i int) string {
	return fmt.Sprintf("%s_tool_%d", analysisID, i)
}

// FromRefinement builds a pending suggestion from the i-th refinement of an
// analysis. Confidence defaults to 0.5 and priority to medium when the
// analyzer left them unset.
func FromRefinement(analysisID string, i int, r Refinement, now int64) Suggestion {
	confidence := r.Confidence
	if confidence == 0 {
		confidence = 0.5
	}
	return Suggestion{
		ID:              RefinementID(analysisID, i),
		AnalysisID:      analysisID,
		Type:            TypePromptRefinement,
		Ord:             i,
		TargetFile:      r.TargetFile,
		SuggestedChange: r.SuggestedChange,
		Description:     r.Description,
		Rationale:       r.Rationale,
		Confidence:      confidence,
		Priority:        NormalizePriority(r.Priority, PriorityMedium),
		Status:          StatusPending,
		CreatedAt:       now,
	}
}

// FromToolCandidate builds a pending suggestion from the i-th tool candidate
// of an analysis. Tool suggestions default to low priority.
func FromToolCandidate(analysisID string, i int, c ToolCandidate, now int64) Suggestion {
	confidence := c.Confidence
	if confidence == 0 {
		confidence = 0.5
	}
	return Suggestion{
		ID:          ToolSuggestionID(analysisID, i),
		AnalysisID:  analysisID,
		Type:        TypeNewTool,
		Ord:         i,
		ToolName:    c.ToolName,
		Description: c.Description,
		Rationale:   c.Rationale,
		Confidence:  confidence,
		Priority:    NormalizePriority(c.Priority, PriorityLow),
		Status:      StatusPending,
		CreatedAt:   now,
	}
}
