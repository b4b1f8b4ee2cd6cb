package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/graft-sh/graft/internal/analyzer"
	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/prompt"
)

// TriggerAnalysisInput contains parameters for the TriggerAnalysis operation.
type TriggerAnalysisInput struct {
	ContextID  string // transcript context to analyze; default: "default"
	MaxHistory int    // transcript entries fed to the analyzer
}

// TriggerAnalysisOutput contains the result of the TriggerAnalysis operation.
type TriggerAnalysisOutput struct {
	AnalysisID  string `json:"analysis_id"`
	Timestamp   int64  `json:"timestamp"`
	Suggestions int    `json:"suggestions"`
}

// TriggerAnalysis runs the analyzer to completion, persists the analysis, and
// extracts its suggestions. The analysis row and its suggestion rows commit in
// one transaction, so a partially persisted analysis is never listable.
// Callers wanting fire-and-forget run this in a goroutine and acknowledge
// immediately; an analyzer failure leaves existing records untouched.
func TriggerAnalysis(ctx context.Context, database *sql.DB, a analyzer.Analyzer, input TriggerAnalysisInput) (*TriggerAnalysisOutput, error) {
	if input.ContextID == "" {
		input.ContextID = "default"
	}

	analysis, err := a.Run(ctx, input.ContextID, input.MaxHistory)
	if err != nil {
		if errors.Is(err, errors.ErrAnalysisFailed) {
			return nil, err
		}
		return nil, errors.NewAnalysisFailed(err)
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	analysis.ID = id
	analysis.Timestamp = time.Now().Unix()

	suggestionCount := 0

	tx, err := database.Begin()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback()

	if err := db.InsertAnalysis(tx, analysis); err != nil {
		return nil, err
	}
	now := analysis.Timestamp
	for i, r := range analysis.Structured.PromptRefinements {
		s := prompt.FromRefinement(id, i, r, now)
		if _, err := db.InsertSuggestionIgnore(tx, &s); err != nil {
			return nil, err
		}
		suggestionCount++
	}
	for i, c := range analysis.Structured.ToolSuggestions {
		s := prompt.FromToolCandidate(id, i, c, now)
		if _, err := db.InsertSuggestionIgnore(tx, &s); err != nil {
			return nil, err
		}
		suggestionCount++
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &TriggerAnalysisOutput{
		AnalysisID:  id,
		Timestamp:   analysis.Timestamp,
		Suggestions: suggestionCount,
	}, nil
}

// ListAnalysesInput contains parameters for the ListAnalyses operation.
type ListAnalysesInput struct {
	Limit  int
	Search string // optional substring match over analysis content
}

// AnalysisSummary is analysis metadata plus a content preview for listings.
type AnalysisSummary struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Preview   string `json:"preview"`
}

// ListAnalysesOutput contains the result of the ListAnalyses operation.
type ListAnalysesOutput struct {
	Analyses []AnalysisSummary `json:"analyses"`
	Count    int               `json:"count"`
}

const analysisPreviewRunes = 200

// ListAnalyses returns stored analyses, newest first.
func ListAnalyses(database *sql.DB, input ListAnalysesInput) (*ListAnalysesOutput, error) {
	limit := clampLimit(input.Limit)

	analyses, err := db.ListAnalyses(database, limit, input.Search)
	if err != nil {
		return nil, err
	}

	summaries := make([]AnalysisSummary, 0, len(analyses))
	for i := range analyses {
		summaries = append(summaries, AnalysisSummary{
			ID:        analyses[i].ID,
			Timestamp: analyses[i].Timestamp,
			Preview:   analyses[i].Preview(analysisPreviewRunes),
		})
	}

	return &ListAnalysesOutput{
		Analyses: summaries,
		Count:    len(summaries),
	}, nil
}

// GetAnalysis fetches one stored analysis in full.
func GetAnalysis(database *sql.DB, analysisID string) (*prompt.Analysis, error) {
	if analysisID == "" {
		return nil, errors.NewInvalidRequest("analysis_id is required")
	}
	return db.GetAnalysis(database, analysisID)
}
