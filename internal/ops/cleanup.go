package ops

import (
	"database/sql"

	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/errors"
)

// CleanupInput contains parameters for the Cleanup operation.
type CleanupInput struct {
	KeepCount int // default: cfg.KeepVersions at the call site
}

// CleanupOutput contains the result of the Cleanup operation.
type CleanupOutput struct {
	Deleted   int `json:"deleted"`
	KeepCount int `json:"keep_count"`
}

// Cleanup deletes snapshots beyond the KeepCount most recent by timestamp.
// The store is suggestion-unaware: callers that rely on backup snapshots of
// still-pending suggestions must choose KeepCount accordingly.
func Cleanup(database *sql.DB, input CleanupInput) (*CleanupOutput, error) {
	if input.KeepCount <= 0 {
		return nil, errors.NewInvalidRequest("keep_count must be positive")
	}

	deleted, err := db.DeleteSnapshotsBeyond(database, input.KeepCount)
	if err != nil {
		return nil, err
	}

	return &CleanupOutput{
		Deleted:   deleted,
		KeepCount: input.KeepCount,
	}, nil
}
