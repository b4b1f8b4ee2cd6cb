package ops

import (
	"database/sql"

	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/prompt"
)

// ListSuggestionsInput contains parameters for the ListSuggestions operation.
type ListSuggestionsInput struct {
	Status prompt.Status // optional filter; empty means all
	Limit  int
}

// ListSuggestionsOutput contains the result of the ListSuggestions operation.
type ListSuggestionsOutput struct {
	Suggestions []prompt.Suggestion `json:"suggestions"`
	Count       int                 `json:"count"`
}

// ListSuggestions returns suggestions ordered by newest analysis first, then
// extraction order within each analysis.
func ListSuggestions(database *sql.DB, input ListSuggestionsInput) (*ListSuggestionsOutput, error) {
	if input.Status != "" && !prompt.ValidStatus(input.Status) {
		return nil, errors.NewInvalidRequest("status must be one of: pending, applied, rejected")
	}
	limit := clampLimit(input.Limit)

	suggestions, err := db.ListSuggestions(database, input.Status, limit)
	if err != nil {
		return nil, err
	}

	return &ListSuggestionsOutput{
		Suggestions: suggestions,
		Count:       len(suggestions),
	}, nil
}

// GetSuggestion fetches one suggestion and verifies it belongs to the given
// analysis. A suggestion that exists under another analysis is reported as a
// mismatch, not returned.
func GetSuggestion(database *sql.DB, analysisID, suggestionID string) (*prompt.Suggestion, error) {
	if suggestionID == "" {
		return nil, errors.NewInvalidRequest("suggestion_id is required")
	}
	if analysisID == "" {
		return nil, errors.NewInvalidRequest("analysis_id is required")
	}

	suggestion, err := db.GetSuggestion(database, suggestionID)
	if err != nil {
		return nil, err
	}
	if suggestion.AnalysisID != analysisID {
		return nil, errors.NewMismatch(suggestionID, analysisID)
	}
	return suggestion, nil
}

// RejectOutput contains the result of the Reject operation.
type RejectOutput struct {
	ID     string        `json:"id"`
	Status prompt.Status `json:"status"`
}

// Reject transitions a pending suggestion to rejected. Terminal states are
// final; rejecting an applied or already-rejected suggestion fails.
func Reject(database *sql.DB, suggestionID string) (*RejectOutput, error) {
	if suggestionID == "" {
		return nil, errors.NewInvalidRequest("suggestion_id is required")
	}

	if err := db.TransitionSuggestion(database, suggestionID, prompt.StatusRejected, nil); err != nil {
		return nil, err
	}

	return &RejectOutput{
		ID:     suggestionID,
		Status: prompt.StatusRejected,
	}, nil
}
