package ops

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/fileset"
	"github.com/graft-sh/graft/internal/prompt"
)

// testEnv creates a database and a prompts directory under a temp base dir.
func testEnv(t *testing.T) (*sql.DB, *fileset.Dir, string) {
	t.Helper()
	baseDir := t.TempDir()

	database, err := db.Init(baseDir)
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	files, err := fileset.NewDir(filepath.Join(baseDir, "prompts"))
	if err != nil {
		t.Fatalf("fileset.NewDir failed: %v", err)
	}

	return database, files, baseDir
}

func writePrompt(t *testing.T, files *fileset.Dir, path, content string) {
	t.Helper()
	if err := files.Write(path, content); err != nil {
		t.Fatalf("write %s failed: %v", path, err)
	}
}

func readPrompt(t *testing.T, files *fileset.Dir, path string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(files.Root(), path))
	if err != nil {
		t.Fatalf("read %s failed: %v", path, err)
	}
	return string(data)
}

// storeAnalysis inserts an analysis directly, bypassing the analyzer.
func storeAnalysis(t *testing.T, database *sql.DB, id string, structured prompt.Structured) {
	t.Helper()
	a := &prompt.Analysis{
		ID:         id,
		Timestamp:  1700000000,
		Content:    "analysis " + id,
		Structured: structured,
	}
	if err := db.InsertAnalysis(database, a); err != nil {
		t.Fatalf("insert analysis failed: %v", err)
	}
}

func insertAnalysisDirect(database *sql.DB, a *prompt.Analysis) error {
	return db.InsertAnalysis(database, a)
}

func refinementFor(target, change string) prompt.Refinement {
	return prompt.Refinement{
		TargetFile:      target,
		Description:     "tighten wording",
		Rationale:       "observed drift",
		SuggestedChange: change,
		Confidence:      0.9,
		Priority:        prompt.PriorityHigh,
	}
}

func removePrompt(t *testing.T, files *fileset.Dir, path string) {
	t.Helper()
	if err := os.Remove(filepath.Join(files.Root(), path)); err != nil {
		t.Fatalf("remove %s failed: %v", path, err)
	}
}

// failingProvider wraps a Dir and fails writes to one path.
type failingProvider struct {
	*fileset.Dir
	failPath string
}

func (p *failingProvider) Write(path, content string) error {
	if path == p.failPath {
		return fmt.Errorf("write %s: disk full", path)
	}
	return p.Dir.Write(path, content)
}

func stringPtr(s string) *string {
	return &s
}
