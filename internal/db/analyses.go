package db

import (
	"database/sql"
	"encoding/json"

	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/prompt"
)

// InsertAnalysis stores a completed analysis. Run inside the same transaction
// as the extraction inserts so a trigger publishes atomically.
func InsertAnalysis(q DBTX, a *prompt.Analysis) error {
	structured, err := json.Marshal(a.Structured)
	if err != nil {
		return errors.NewInternal(err)
	}

	_, err = q.Exec(`
		INSERT INTO analyses (id, timestamp, content, structured_json)
		VALUES (?, ?, ?, ?)
	`, a.ID, a.Timestamp, a.Content, string(structured))
	if err != nil {
		return errors.NewInternal(err)
	}

	return nil
}

// GetAnalysis retrieves an analysis by ID.
func GetAnalysis(q DBTX, id string) (*prompt.Analysis, error) {
	row := q.QueryRow(`
		SELECT id, timestamp, content, structured_json
		FROM analyses
		WHERE id = ?
	`, id)

	a, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("analysis", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return a, nil
}

// ListAnalyses returns analyses newest first, optionally filtered by a
// substring match over content.
func ListAnalyses(q DBTX, limit int, search string) ([]prompt.Analysis, error) {
	query := `
		SELECT id, timestamp, content, structured_json
		FROM analyses
	`
	args := []any{}
	if search != "" {
		query += ` WHERE content LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(search)+"%")
	}
	// ULIDs are time-ordered, so id breaks same-second timestamp ties
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	analyses := make([]prompt.Analysis, 0)
	for rows.Next() {
		var (
			a          prompt.Analysis
			structured string
		)
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.Content, &structured); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := json.Unmarshal([]byte(structured), &a.Structured); err != nil {
			return nil, errors.NewInternal(err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return analyses, nil
}

// escapeLike escapes LIKE wildcards in a user-supplied search term.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// scanAnalysis scans a single analysis row.
func scanAnalysis(row *sql.Row) (*prompt.Analysis, error) {
	var (
		a          prompt.Analysis
		structured string
	)

	err := row.Scan(&a.ID, &a.Timestamp, &a.Content, &structured)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(structured), &a.Structured); err != nil {
		return nil, err
	}

	return &a, nil
}
