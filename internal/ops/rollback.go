package ops

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/fileset"
	"github.com/graft-sh/graft/internal/prompt"
)

// RollbackInput contains parameters for the Rollback operation.
type RollbackInput struct {
	VersionID    string
	CreateBackup bool // snapshot the current state before restoring
}

// RollbackOutput contains the result of the Rollback operation.
type RollbackOutput struct {
	RestoredVersionID string  `json:"restored_version_id"`
	BackupVersionID   *string `json:"backup_version_id,omitempty"`
	FilesRestored     int     `json:"files_restored"`
}

// Rollback restores the tracked file set from a prior snapshot. Files present
// in the snapshot are overwritten or recreated; files in the live set but not
// in the snapshot are left untouched. The filesystem boundary is not
// transactional: a write failure partway surfaces as PARTIAL_ROLLBACK with the
// files not yet restored, and retrying the same rollback is safe because
// re-writing identical content is a no-op in effect.
func Rollback(database *sql.DB, files fileset.Provider, input RollbackInput) (*RollbackOutput, error) {
	if input.VersionID == "" {
		return nil, errors.NewInvalidRequest("version_id is required")
	}

	snapshot, err := db.GetSnapshot(database, input.VersionID)
	if err != nil {
		return nil, err
	}

	out := &RollbackOutput{RestoredVersionID: input.VersionID}

	if input.CreateBackup {
		backupID, err := createRollbackBackup(database, files, input.VersionID)
		if err != nil {
			return nil, err
		}
		out.BackupVersionID = &backupID
	}

	for i, f := range snapshot.Files {
		if err := files.Write(f.Path, f.Content); err != nil {
			remaining := make([]string, 0, len(snapshot.Files)-i)
			for _, rest := range snapshot.Files[i:] {
				remaining = append(remaining, rest.Path)
			}
			return nil, errors.NewPartialRollback(input.VersionID, remaining, err)
		}
		out.FilesRestored++
	}

	return out, nil
}

// createRollbackBackup snapshots the current live state under the label
// pre_rollback_<versionID>. A leftover backup from an earlier rollback to the
// same target is replaced, so repeating a rollback never fails on the label.
// The replacement gets a fresh ULID; version IDs are never reused.
func createRollbackBackup(database *sql.DB, files fileset.Provider, versionID string) (string, error) {
	label := "pre_rollback_" + versionID

	current, err := files.ReadAll()
	if err != nil {
		return "", err
	}

	backupID, err := generateULID()
	if err != nil {
		return "", errors.NewInternal(err)
	}

	now := time.Now()
	backup := &prompt.Snapshot{
		VersionID: backupID,
		Timestamp: now.Unix(),
		Label:     &label,
		CreatedBy: prompt.CreatedByManual,
		Files:     current,
		Changes: []prompt.Change{{
			File:        "*",
			Description: fmt.Sprintf("state before rollback to %s", versionID),
			Timestamp:   now.UTC().Format(time.RFC3339),
		}},
	}

	tx, err := database.Begin()
	if err != nil {
		return "", errors.NewInternal(err)
	}
	defer tx.Rollback()

	if err := db.DeleteSnapshotByLabel(tx, label); err != nil {
		return "", err
	}
	if err := db.InsertSnapshot(tx, backup); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", errors.NewInternal(err)
	}

	return backupID, nil
}
