package ops

import (
	"database/sql"

	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/prompt"
)

// ListVersionsInput contains parameters for the ListVersions operation.
type ListVersionsInput struct {
	Limit int // default: DefaultListLimit, max: MaxListLimit
}

// ListVersionsOutput contains the result of the ListVersions operation.
type ListVersionsOutput struct {
	Versions []prompt.Summary `json:"versions"`
	Count    int              `json:"count"`
}

// ListVersions returns snapshot metadata, newest first. Callers page by
// re-querying with a larger limit.
func ListVersions(database *sql.DB, input ListVersionsInput) (*ListVersionsOutput, error) {
	limit := clampLimit(input.Limit)

	versions, err := db.ListSnapshots(database, limit)
	if err != nil {
		return nil, err
	}

	return &ListVersionsOutput{
		Versions: versions,
		Count:    len(versions),
	}, nil
}

// GetVersion fetches one full snapshot, files and changes included.
func GetVersion(database *sql.DB, versionID string) (*prompt.Snapshot, error) {
	if versionID == "" {
		return nil, errors.NewInvalidRequest("version_id is required")
	}
	return db.GetSnapshot(database, versionID)
}
