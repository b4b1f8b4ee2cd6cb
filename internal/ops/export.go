package ops

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/graft-sh/graft/internal/config"
	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/errors"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	VersionID string
	Path      string // optional, default: <baseDir>/exports/<version_id>
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path         string `json:"path"`
	FilesWritten int    `json:"files_written"`
}

// Export writes a snapshot's files into a directory for inspection or sharing.
// The destination must be the default exports tree, a configured allowed path,
// or anywhere when AllowUnsafePaths is set.
func Export(database *sql.DB, cfg *config.Config, baseDir string, input ExportInput) (*ExportOutput, error) {
	if input.VersionID == "" {
		return nil, errors.NewInvalidRequest("version_id is required")
	}

	snapshot, err := db.GetSnapshot(database, input.VersionID)
	if err != nil {
		return nil, err
	}

	exportPath := input.Path
	if exportPath == "" {
		exportPath = filepath.Join(baseDir, "exports", input.VersionID)
	}

	// Default paths are validated too; version IDs are caller-influenced.
	absPath, err := validateExportDir(exportPath, cfg, baseDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(absPath, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	count := 0
	for _, f := range snapshot.Files {
		if err := os.WriteFile(filepath.Join(absPath, f.Path), []byte(f.Content), 0600); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("failed to write %s: %w", f.Path, err))
		}
		count++
	}

	return &ExportOutput{
		Path:         absPath,
		FilesWritten: count,
	}, nil
}

// validateExportDir checks an export destination directory. Traversal
// sequences are rejected outright; the directory must sit under the default
// exports tree or one of the configured allowed paths unless unsafe paths are
// enabled.
func validateExportDir(path string, cfg *config.Config, baseDir string) (string, error) {
	if containsTraversal(path) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if cfg != nil && cfg.AllowUnsafePaths {
		return absPath, nil
	}

	allowed := allowedExportDirs(cfg, baseDir)
	for _, dir := range allowed {
		if absPath == dir || strings.HasPrefix(absPath, dir+string(filepath.Separator)) {
			return absPath, nil
		}
	}
	return "", errors.NewInvalidRequest(
		fmt.Sprintf("export path must be under an allowed directory; allowed: %v", allowed))
}

// allowedExportDirs returns the default exports directory plus configured
// absolute allowed paths, cleaned.
func allowedExportDirs(cfg *config.Config, baseDir string) []string {
	defaultDir := filepath.Join(baseDir, "exports")
	if abs, err := filepath.Abs(defaultDir); err == nil {
		defaultDir = abs
	}
	dirs := []string{filepath.Clean(defaultDir)}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, filepath.Clean(p))
			}
		}
	}
	return dirs
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
