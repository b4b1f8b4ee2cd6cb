package fileset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/prompt"
)

// Provider abstracts the live prompt directory. The snapshot and rollback
// operations go through this interface so tests can point the engine at a
// temp directory and future backends (remote config stores) can slot in.
type Provider interface {
	// ReadAll returns every tracked file, ordered by path.
	ReadAll() ([]prompt.File, error)

	// Write replaces one tracked file, creating it if absent.
	Write(path, content string) error
}

// Dir is a Provider over a local directory. Tracked files are the *.md files
// directly inside the directory (no recursion), mirroring how prompt sets are
// laid out.
type Dir struct {
	root string
}

// NewDir creates a Dir provider rooted at the given directory.
// The directory is created if it does not exist.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &Dir{root: root}, nil
}

// Root returns the tracked directory.
func (d *Dir) Root() string {
	return d.root
}

// ReadAll returns all tracked files sorted by path.
func (d *Dir) ReadAll() ([]prompt.File, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	files := make([]prompt.File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.root, entry.Name()))
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		content := string(data)
		files = append(files, prompt.File{
			Path:    entry.Name(),
			Content: content,
			Hash:    prompt.HashContent(content),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Write replaces one tracked file. The write goes through a temp file and
// rename so a crash mid-write never leaves a truncated prompt.
func (d *Dir) Write(path, content string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.root, ".graft-*")
	if err != nil {
		return errors.NewInternal(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewInternal(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.NewInternal(err)
	}

	if err := os.Rename(tmpName, filepath.Join(d.root, path)); err != nil {
		os.Remove(tmpName)
		return errors.NewInternal(err)
	}
	return nil
}

// ValidatePath rejects paths that would escape the tracked directory.
// Tracked files are plain names, never nested or absolute.
func ValidatePath(path string) error {
	if path == "" {
		return errors.NewInvalidRequest("file path must not be empty")
	}
	if strings.ContainsAny(path, `/\`) || path != filepath.Base(path) {
		return errors.NewInvalidRequest("file path must be a plain name without separators")
	}
	if path == "." || path == ".." {
		return errors.NewInvalidRequest("file path must be a plain name without separators")
	}
	return nil
}
