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

// ApplyInput contains parameters for the Apply operation.
type ApplyInput struct {
	SuggestionID string
	AnalysisID   string
	Approved     bool // hard gate; there is no configuration override
}

// ApplyOutput contains the result of the Apply operation.
type ApplyOutput struct {
	ID              string        `json:"id"`
	Status          prompt.Status `json:"status"`
	TargetFile      string        `json:"target_file"`
	BackupVersionID string        `json:"backup_version_id"`
}

// Apply writes an approved prompt refinement to its target file. The status
// transition, the backup snapshot, and the file write share one transaction:
// the compare-and-swap on status runs first and serializes concurrent racers,
// and a failed file write rolls everything back so the suggestion stays
// pending. An applied status is never visible without the write having
// succeeded. Tool suggestions cannot be applied automatically.
func Apply(database *sql.DB, files fileset.Provider, input ApplyInput) (*ApplyOutput, error) {
	if !input.Approved {
		return nil, errors.NewApprovalRequired()
	}

	suggestion, err := GetSuggestion(database, input.AnalysisID, input.SuggestionID)
	if err != nil {
		return nil, err
	}

	if suggestion.Type != prompt.TypePromptRefinement {
		return nil, errors.NewUnsupportedType(string(suggestion.Type))
	}
	if suggestion.TargetFile == "" || suggestion.SuggestedChange == "" {
		return nil, errors.NewInvalidRequest("suggestion has no target file or suggested change")
	}

	current, err := files.ReadAll()
	if err != nil {
		return nil, err
	}

	backupID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	now := time.Now()
	backup := &prompt.Snapshot{
		VersionID: backupID,
		Timestamp: now.Unix(),
		CreatedBy: prompt.CreatedByMetaLearning,
		Files:     current,
		Changes: []prompt.Change{{
			File:        suggestion.TargetFile,
			Description: fmt.Sprintf("state before applying suggestion %s: %s", suggestion.ID, suggestion.Description),
			Timestamp:   now.UTC().Format(time.RFC3339),
		}},
	}

	tx, err := database.Begin()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback()

	// CAS first: the losing racer fails here before any side effects
	if err := db.TransitionSuggestion(tx, suggestion.ID, prompt.StatusApplied, &backupID); err != nil {
		return nil, err
	}
	if err := db.InsertSnapshot(tx, backup); err != nil {
		return nil, err
	}
	if err := files.Write(suggestion.TargetFile, suggestion.SuggestedChange); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &ApplyOutput{
		ID:              suggestion.ID,
		Status:          prompt.StatusApplied,
		TargetFile:      suggestion.TargetFile,
		BackupVersionID: backupID,
	}, nil
}
