package db

import (
	"database/sql"
	"time"

	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/prompt"
)

// InsertSuggestionIgnore inserts a suggestion unless one with the same ID
// already exists. Returns whether a row was inserted. Suggestion IDs are
// deterministic per (analysis, type, index), so re-extraction is a no-op for
// rows that already exist; their status and terminal data are untouched.
func InsertSuggestionIgnore(q DBTX, s *prompt.Suggestion) (bool, error) {
	targetFile := nullIfEmpty(s.TargetFile)
	toolName := nullIfEmpty(s.ToolName)
	suggestedChange := nullIfEmpty(s.SuggestedChange)

	result, err := q.Exec(`
		INSERT OR IGNORE INTO suggestions (
			id, analysis_id, type, ord, target_file, tool_name,
			description, rationale, suggested_change, confidence,
			priority, status, applied_version, created_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, NULL)
	`,
		s.ID, s.AnalysisID, string(s.Type), s.Ord, targetFile, toolName,
		s.Description, s.Rationale, suggestedChange, s.Confidence,
		string(s.Priority), string(s.Status), s.CreatedAt,
	)
	if err != nil {
		return false, errors.NewInternal(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return affected > 0, nil
}

// GetSuggestion retrieves a suggestion by ID.
func GetSuggestion(q DBTX, id string) (*prompt.Suggestion, error) {
	row := q.QueryRow(selectSuggestion+` WHERE id = ?`, id)

	s, err := scanSuggestion(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("suggestion", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return s, nil
}

// SuggestionsForAnalysis returns all suggestions extracted from one analysis
// in extraction order: refinements first, then tool suggestions.
func SuggestionsForAnalysis(q DBTX, analysisID string) ([]prompt.Suggestion, error) {
	rows, err := q.Query(selectSuggestion+`
		WHERE analysis_id = ?
		ORDER BY CASE type WHEN 'prompt_refinement' THEN 0 ELSE 1 END, ord
	`, analysisID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return collectSuggestions(rows)
}

// ListSuggestions returns suggestions across analyses, newest analysis first,
// then extraction order within each analysis. An empty status lists all.
func ListSuggestions(q DBTX, status prompt.Status, limit int) ([]prompt.Suggestion, error) {
	query := `
		SELECT s.id, s.analysis_id, s.type, s.ord, s.target_file, s.tool_name,
			s.description, s.rationale, s.suggested_change, s.confidence,
			s.priority, s.status, s.applied_version, s.created_at, s.resolved_at
		FROM suggestions s
		JOIN analyses a ON a.id = s.analysis_id
	`
	args := []any{}
	if status != "" {
		query += ` WHERE s.status = ?`
		args = append(args, string(status))
	}
	query += `
		ORDER BY a.timestamp DESC, a.id DESC,
			CASE s.type WHEN 'prompt_refinement' THEN 0 ELSE 1 END, s.ord
		LIMIT ?
	`
	args = append(args, limit)

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	return collectSuggestions(rows)
}

// TransitionSuggestion moves a pending suggestion to a terminal status via an
// atomic compare-and-swap: the UPDATE only matches while status is still
// pending, so exactly one of two racing callers wins. The loser gets
// INVALID_TRANSITION, an unknown ID gets NOT_FOUND.
func TransitionSuggestion(q DBTX, id string, newStatus prompt.Status, appliedVersion *string) error {
	now := time.Now().Unix()

	result, err := q.Exec(`
		UPDATE suggestions
		SET status = ?, applied_version = ?, resolved_at = ?
		WHERE id = ? AND status = 'pending'
	`, string(newStatus), toNullString(appliedVersion), now, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if affected > 0 {
		return nil
	}

	// CAS failed: distinguish unknown ID from terminal status
	var current string
	err = q.QueryRow(`SELECT status FROM suggestions WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return errors.NewNotFound("suggestion", id)
	}
	if err != nil {
		return errors.NewInternal(err)
	}
	return errors.NewInvalidTransition(id, current)
}

const selectSuggestion = `
	SELECT id, analysis_id, type, ord, target_file, tool_name,
		description, rationale, suggested_change, confidence,
		priority, status, applied_version, created_at, resolved_at
	FROM suggestions
`

// collectSuggestions drains rows into a slice.
func collectSuggestions(rows *sql.Rows) ([]prompt.Suggestion, error) {
	suggestions := make([]prompt.Suggestion, 0)
	for rows.Next() {
		s, err := scanSuggestionRows(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		suggestions = append(suggestions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return suggestions, nil
}

// scanner abstracts *sql.Row and *sql.Rows for suggestion scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanSuggestion(row *sql.Row) (*prompt.Suggestion, error) {
	return scanSuggestionFrom(row)
}

func scanSuggestionRows(rows *sql.Rows) (*prompt.Suggestion, error) {
	return scanSuggestionFrom(rows)
}

func scanSuggestionFrom(sc scanner) (*prompt.Suggestion, error) {
	var (
		s               prompt.Suggestion
		typ             string
		targetFile      sql.NullString
		toolName        sql.NullString
		suggestedChange sql.NullString
		priority        string
		status          string
		appliedVersion  sql.NullString
		resolvedAt      sql.NullInt64
	)

	err := sc.Scan(
		&s.ID, &s.AnalysisID, &typ, &s.Ord, &targetFile, &toolName,
		&s.Description, &s.Rationale, &suggestedChange, &s.Confidence,
		&priority, &status, &appliedVersion, &s.CreatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Type = prompt.SuggestionType(typ)
	s.Priority = prompt.Priority(priority)
	s.Status = prompt.Status(status)
	if targetFile.Valid {
		s.TargetFile = targetFile.String
	}
	if toolName.Valid {
		s.ToolName = toolName.String
	}
	if suggestedChange.Valid {
		s.SuggestedChange = suggestedChange.String
	}
	s.AppliedVersion = fromNullString(appliedVersion)
	if resolvedAt.Valid {
		s.ResolvedAt = &resolvedAt.Int64
	}

	return &s, nil
}

// nullIfEmpty converts an empty string to SQL NULL.
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
