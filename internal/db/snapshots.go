package db

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/prompt"
)

// InsertSnapshot stores a snapshot (metadata plus file rows). The caller is
// expected to run this inside a transaction so the snapshot publishes
// atomically: get/list never observe a half-written snapshot.
func InsertSnapshot(q DBTX, s *prompt.Snapshot) error {
	var changesJSON sql.NullString
	if len(s.Changes) > 0 {
		data, err := json.Marshal(s.Changes)
		if err != nil {
			return errors.NewInternal(err)
		}
		changesJSON = sql.NullString{String: string(data), Valid: true}
	}

	label := toNullString(s.Label)

	_, err := q.Exec(`
		INSERT INTO snapshots (version_id, timestamp, label, created_by, changes_json)
		VALUES (?, ?, ?, ?, ?)
	`, s.VersionID, s.Timestamp, label, string(s.CreatedBy), changesJSON)
	if err != nil {
		if isUniqueConstraintError(err) {
			dup := s.VersionID
			if s.Label != nil {
				dup = *s.Label
			}
			return errors.NewDuplicateLabel(dup)
		}
		return errors.NewInternal(err)
	}

	for i, f := range s.Files {
		_, err := q.Exec(`
			INSERT INTO snapshot_files (version_id, ord, path, content, hash)
			VALUES (?, ?, ?, ?, ?)
		`, s.VersionID, i, f.Path, f.Content, f.Hash)
		if err != nil {
			return errors.NewInternal(err)
		}
	}

	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite reports "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetSnapshot retrieves a full snapshot including file contents and changes.
func GetSnapshot(q DBTX, versionID string) (*prompt.Snapshot, error) {
	row := q.QueryRow(`
		SELECT version_id, timestamp, label, created_by, changes_json
		FROM snapshots
		WHERE version_id = ?
	`, versionID)

	s, err := scanSnapshotMeta(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("snapshot", versionID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	rows, err := q.Query(`
		SELECT path, content, hash
		FROM snapshot_files
		WHERE version_id = ?
		ORDER BY ord
	`, versionID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var f prompt.File
		if err := rows.Scan(&f.Path, &f.Content, &f.Hash); err != nil {
			return nil, errors.NewInternal(err)
		}
		s.Files = append(s.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return s, nil
}

// SnapshotExists reports whether a snapshot with the given version ID exists.
func SnapshotExists(q DBTX, versionID string) (bool, error) {
	var one int
	err := q.QueryRow(`SELECT 1 FROM snapshots WHERE version_id = ? LIMIT 1`, versionID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// ListSnapshots returns snapshot summaries, newest first. Ties on the
// second-resolution timestamp fall back to insertion order.
func ListSnapshots(q DBTX, limit int) ([]prompt.Summary, error) {
	rows, err := q.Query(`
		SELECT s.version_id, s.timestamp, s.label, s.created_by,
			(SELECT COUNT(*) FROM snapshot_files f WHERE f.version_id = s.version_id)
		FROM snapshots s
		ORDER BY s.timestamp DESC, s.rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	summaries := make([]prompt.Summary, 0)
	for rows.Next() {
		var (
			sum       prompt.Summary
			label     sql.NullString
			createdBy string
		)
		if err := rows.Scan(&sum.VersionID, &sum.Timestamp, &label, &createdBy, &sum.FileCount); err != nil {
			return nil, errors.NewInternal(err)
		}
		sum.Label = fromNullString(label)
		sum.CreatedBy = prompt.CreatedBy(createdBy)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return summaries, nil
}

// DeleteSnapshotByLabel removes the snapshot carrying the given label, if any.
// Used by rollback to overwrite a stale pre_rollback backup of the same target.
func DeleteSnapshotByLabel(q DBTX, label string) error {
	row := q.QueryRow(`SELECT version_id FROM snapshots WHERE label = ?`, label)

	var versionID string
	err := row.Scan(&versionID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.NewInternal(err)
	}

	return deleteSnapshot(q, versionID)
}

// DeleteSnapshotsBeyond deletes all snapshots except the keepCount most
// recent (by timestamp), returning the number deleted.
func DeleteSnapshotsBeyond(q DBTX, keepCount int) (int, error) {
	rows, err := q.Query(`
		SELECT version_id FROM snapshots
		ORDER BY timestamp DESC, rowid DESC
		LIMIT -1 OFFSET ?
	`, keepCount)
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, errors.NewInternal(err)
		}
		stale = append(stale, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, errors.NewInternal(err)
	}
	rows.Close()

	for _, id := range stale {
		if err := deleteSnapshot(q, id); err != nil {
			return 0, err
		}
	}

	return len(stale), nil
}

// deleteSnapshot removes one snapshot and its file rows.
func deleteSnapshot(q DBTX, versionID string) error {
	if _, err := q.Exec(`DELETE FROM snapshot_files WHERE version_id = ?`, versionID); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := q.Exec(`DELETE FROM snapshots WHERE version_id = ?`, versionID); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// scanSnapshotMeta scans a snapshot metadata row (no files).
func scanSnapshotMeta(row *sql.Row) (*prompt.Snapshot, error) {
	var (
		s           prompt.Snapshot
		label       sql.NullString
		createdBy   string
		changesJSON sql.NullString
	)

	err := row.Scan(&s.VersionID, &s.Timestamp, &label, &createdBy, &changesJSON)
	if err != nil {
		return nil, err
	}

	s.Label = fromNullString(label)
	s.CreatedBy = prompt.CreatedBy(createdBy)

	if changesJSON.Valid && changesJSON.String != "" {
		if err := json.Unmarshal([]byte(changesJSON.String), &s.Changes); err != nil {
			return nil, err
		}
	}

	return &s, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
