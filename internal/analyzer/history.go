package analyzer

import (
	"os"
	"path/filepath"
	"strings"
)

// FileHistory reads transcripts from <dir>/<contextID>.log, one entry per
// line. Missing files are treated as an empty history.
type FileHistory struct {
	dir string
}

func NewFileHistory(dir string) *FileHistory {
	return &FileHistory{dir: dir}
}

func (h *FileHistory) Recent(contextID string, limit int) (string, error) {
	data, err := os.ReadFile(filepath.Join(h.dir, contextID+".log"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return strings.Join(lines, "\n"), nil
}
