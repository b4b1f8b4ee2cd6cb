package ops

import (
	"database/sql"
	"time"

	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/prompt"
)

// ExtractOutput contains the result of the Extract operation.
type ExtractOutput struct {
	Suggestions []prompt.Suggestion `json:"suggestions"`
	Created     int                 `json:"created"`
}

// Extract materializes suggestions from an analysis's structured payload.
// Suggestion IDs are deterministic in (analysis, type, index), and inserts
// ignore existing rows, so re-extracting the same analysis returns the stored
// suggestions with their current statuses intact rather than duplicating or
// resetting anything.
func Extract(database *sql.DB, analysisID string) (*ExtractOutput, error) {
	if analysisID == "" {
		return nil, errors.NewInvalidRequest("analysis_id is required")
	}

	analysis, err := db.GetAnalysis(database, analysisID)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	candidates := make([]prompt.Suggestion, 0,
		len(analysis.Structured.PromptRefinements)+len(analysis.Structured.ToolSuggestions))
	for i, r := range analysis.Structured.PromptRefinements {
		candidates = append(candidates, prompt.FromRefinement(analysisID, i, r, now))
	}
	for i, c := range analysis.Structured.ToolSuggestions {
		candidates = append(candidates, prompt.FromToolCandidate(analysisID, i, c, now))
	}

	tx, err := database.Begin()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback()

	created := 0
	for i := range candidates {
		inserted, err := db.InsertSuggestionIgnore(tx, &candidates[i])
		if err != nil {
			return nil, err
		}
		if inserted {
			created++
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// Re-read so previously transitioned suggestions show their stored state
	suggestions, err := db.SuggestionsForAnalysis(database, analysisID)
	if err != nil {
		return nil, err
	}

	return &ExtractOutput{
		Suggestions: suggestions,
		Created:     created,
	}, nil
}
