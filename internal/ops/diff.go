package ops

import (
	"database/sql"
	"strings"

	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/errors"
)

// DiffInput contains parameters for the Diff operation.
type DiffInput struct {
	From string // older version ID
	To   string // newer version ID
}

// FileDiff describes how one file differs between two snapshots.
type FileDiff struct {
	Path   string `json:"path"`
	Status string `json:"status"` // added, deleted, modified

	// Line and byte counts for each side; zero on the absent side
	OldLines int `json:"old_lines"`
	NewLines int `json:"new_lines"`
	OldSize  int `json:"old_size"`
	NewSize  int `json:"new_size"`
}

// DiffOutput contains the result of the Diff operation.
type DiffOutput struct {
	From  string     `json:"from"`
	To    string     `json:"to"`
	Files []FileDiff `json:"files"`
}

// Diff compares two snapshots file by file. Unchanged files (identical
// content hash) are omitted. Order follows the To snapshot's file order, with
// deletions appended in the From snapshot's order.
func Diff(database *sql.DB, input DiffInput) (*DiffOutput, error) {
	if input.From == "" || input.To == "" {
		return nil, errors.NewInvalidRequest("from and to version IDs are required")
	}

	from, err := db.GetSnapshot(database, input.From)
	if err != nil {
		return nil, err
	}
	to, err := db.GetSnapshot(database, input.To)
	if err != nil {
		return nil, err
	}

	out := &DiffOutput{From: input.From, To: input.To, Files: []FileDiff{}}

	for _, f := range to.Files {
		old := from.FindFile(f.Path)
		if old == nil {
			out.Files = append(out.Files, FileDiff{
				Path:     f.Path,
				Status:   "added",
				NewLines: countLines(f.Content),
				NewSize:  len(f.Content),
			})
			continue
		}
		if old.Hash == f.Hash {
			continue
		}
		out.Files = append(out.Files, FileDiff{
			Path:     f.Path,
			Status:   "modified",
			OldLines: countLines(old.Content),
			NewLines: countLines(f.Content),
			OldSize:  len(old.Content),
			NewSize:  len(f.Content),
		})
	}

	for _, f := range from.Files {
		if to.FindFile(f.Path) == nil {
			out.Files = append(out.Files, FileDiff{
				Path:     f.Path,
				Status:   "deleted",
				OldLines: countLines(f.Content),
				OldSize:  len(f.Content),
			})
		}
	}

	return out, nil
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
