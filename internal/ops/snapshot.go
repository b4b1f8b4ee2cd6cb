package ops

import (
	"database/sql"
	"time"

	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/fileset"
	"github.com/graft-sh/graft/internal/prompt"
)

// SnapshotInput contains parameters for the Snapshot operation.
type SnapshotInput struct {
	Changes   []prompt.Change  // why the snapshot is being taken
	CreatedBy prompt.CreatedBy // default: manual
	Label     *string          // optional; doubles as the version ID
}

// SnapshotOutput contains the result of the Snapshot operation.
type SnapshotOutput struct {
	VersionID string `json:"version_id"`
	Timestamp int64  `json:"timestamp"`
	FileCount int    `json:"file_count"`
}

// Snapshot captures the current state of the tracked file set as a new
// immutable version. Labeled snapshots use the label as their version ID, so
// callers can address them by name; unlabeled ones get a ULID.
func Snapshot(database *sql.DB, files fileset.Provider, input SnapshotInput) (*SnapshotOutput, error) {
	if input.CreatedBy == "" {
		input.CreatedBy = prompt.CreatedByManual
	}
	if input.CreatedBy != prompt.CreatedByManual && input.CreatedBy != prompt.CreatedByMetaLearning {
		return nil, errors.NewInvalidRequest("created_by must be one of: manual, meta_learning")
	}

	var versionID string
	if input.Label != nil {
		if !prompt.IsSafeLabel(*input.Label) {
			return nil, errors.NewInvalidRequest("label must contain only letters, digits, underscores, and hyphens")
		}
		versionID = *input.Label
	} else {
		id, err := generateULID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		versionID = id
	}

	current, err := files.ReadAll()
	if err != nil {
		return nil, err
	}

	snapshot := &prompt.Snapshot{
		VersionID: versionID,
		Timestamp: time.Now().Unix(),
		Label:     input.Label,
		CreatedBy: input.CreatedBy,
		Files:     current,
		Changes:   input.Changes,
	}

	tx, err := database.Begin()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback()

	if err := db.InsertSnapshot(tx, snapshot); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &SnapshotOutput{
		VersionID: versionID,
		Timestamp: snapshot.Timestamp,
		FileCount: len(current),
	}, nil
}
