package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.KeepVersions != DefaultConfig().KeepVersions {
		t.Fatalf("KeepVersions = %d, want %d", cfg.KeepVersions, DefaultConfig().KeepVersions)
	}
	if cfg.PromptsDir != DefaultConfig().PromptsDir {
		t.Fatalf("PromptsDir = %q, want %q", cfg.PromptsDir, DefaultConfig().PromptsDir)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"keep_versions": 10, "prompts_dir": "/srv/prompts"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.KeepVersions != 10 {
		t.Fatalf("KeepVersions = %d, want 10", cfg.KeepVersions)
	}
	if cfg.PromptsDir != "/srv/prompts" {
		t.Fatalf("PromptsDir = %q, want %q", cfg.PromptsDir, "/srv/prompts")
	}
	// Untouched fields keep defaults
	if cfg.OllamaModel != DefaultConfig().OllamaModel {
		t.Fatalf("OllamaModel = %q, want default %q", cfg.OllamaModel, DefaultConfig().OllamaModel)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestMerge_ArraysDeduplicated(t *testing.T) {
	base := &Config{AllowedPaths: []string{"/a", "/b"}}
	overlay := &Config{AllowedPaths: []string{"/b", "/c", " "}}

	merged := Merge(base, overlay)

	want := []string{"/a", "/b", "/c"}
	if len(merged.AllowedPaths) != len(want) {
		t.Fatalf("AllowedPaths = %v, want %v", merged.AllowedPaths, want)
	}
	for i, p := range want {
		if merged.AllowedPaths[i] != p {
			t.Errorf("AllowedPaths[%d] = %q, want %q", i, merged.AllowedPaths[i], p)
		}
	}
}

func TestMerge_BoolOverlayWins(t *testing.T) {
	merged := Merge(&Config{}, &Config{AllowUnsafePaths: true})
	if !merged.AllowUnsafePaths {
		t.Error("AllowUnsafePaths = false, want true")
	}
}
