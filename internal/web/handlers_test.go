package web

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/graft-sh/graft/internal/config"
	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/fileset"
	"github.com/graft-sh/graft/internal/ops"
	"github.com/graft-sh/graft/internal/prompt"
)

func stringPtr(s string) *string { return &s }

func setupTest(t *testing.T) (*Handlers, *fileset.Dir) {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	files, err := fileset.NewDir(filepath.Join(baseDir, "prompts"))
	if err != nil {
		t.Fatalf("fileset.NewDir: %v", err)
	}

	cfg := config.DefaultConfig()

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	renderer := NewRenderer(templateSub, "test")

	h := &Handlers{
		db:       database,
		cfg:      cfg,
		renderer: renderer,
	}
	return h, files
}

// seedVersion snapshots the current prompt files under a label.
func seedVersion(t *testing.T, h *Handlers, files *fileset.Dir, label string) string {
	t.Helper()
	out, err := ops.Snapshot(h.db, files, ops.SnapshotInput{
		CreatedBy: prompt.CreatedByManual,
		Label:     stringPtr(label),
	})
	if err != nil {
		t.Fatalf("seed version %q: %v", label, err)
	}
	return out.VersionID
}

// seedAnalysis inserts an analysis record and extracts its suggestions.
func seedAnalysis(t *testing.T, h *Handlers, id string, structured prompt.Structured) {
	t.Helper()
	a := &prompt.Analysis{
		ID:         id,
		Timestamp:  1700000000,
		Content:    "## Findings\n\nanalysis " + id,
		Structured: structured,
	}
	if err := db.InsertAnalysis(h.db, a); err != nil {
		t.Fatalf("insert analysis: %v", err)
	}
	if _, err := ops.Extract(h.db, id); err != nil {
		t.Fatalf("extract suggestions: %v", err)
	}
}

// --- HandleVersions ---

func TestHandleVersions_Default(t *testing.T) {
	h, files := setupTest(t)
	if err := files.Write("system.md", "# System"); err != nil {
		t.Fatalf("write prompt: %v", err)
	}
	seedVersion(t, h, files, "baseline")

	req := httptest.NewRequest("GET", "/versions", nil)
	rec := httptest.NewRecorder()
	h.HandleVersions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "baseline") {
		t.Error("expected version 'baseline' in response")
	}
	if !strings.Contains(body, "tag-manual") {
		t.Error("expected created_by tag in response")
	}
}

func TestHandleVersions_Empty(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/versions", nil)
	rec := httptest.NewRecorder()
	h.HandleVersions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No versions yet") {
		t.Error("expected empty state message")
	}
}

func TestHandleVersions_InvalidLimitFallsBack(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/versions?limit=notanumber", nil)
	rec := httptest.NewRecorder()
	h.HandleVersions(rec, req)

	// Should not error, falls back to the default limit
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

// --- HandleVersionDetail ---

func TestHandleVersionDetail_Found(t *testing.T) {
	h, files := setupTest(t)
	if err := files.Write("system.md", "# Heading\n\nBody text."); err != nil {
		t.Fatalf("write prompt: %v", err)
	}
	id := seedVersion(t, h, files, "detail")

	req := httptest.NewRequest("GET", "/versions/"+id, nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleVersionDetail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "system.md") {
		t.Error("expected file path in detail page")
	}
	// Markdown should be rendered to HTML
	if !strings.Contains(body, "<h1>Heading</h1>") {
		t.Error("expected rendered markdown content")
	}
}

func TestHandleVersionDetail_NotFound(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/versions/NONEXISTENT", nil)
	req.SetPathValue("id", "NONEXISTENT")
	rec := httptest.NewRecorder()
	h.HandleVersionDetail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// --- HandleSuggestions ---

func TestHandleSuggestions_List(t *testing.T) {
	h, _ := setupTest(t)
	seedAnalysis(t, h, "01A", prompt.Structured{
		PromptRefinements: []prompt.Refinement{{
			TargetFile:      "system.md",
			Description:     "tighten wording",
			Rationale:       "observed drift",
			SuggestedChange: "Be concise.",
			Confidence:      0.9,
			Priority:        prompt.PriorityHigh,
		}},
	})

	req := httptest.NewRequest("GET", "/suggestions", nil)
	rec := httptest.NewRecorder()
	h.HandleSuggestions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "01A_ref_0") {
		t.Error("expected suggestion ID in response")
	}
	if !strings.Contains(body, "tighten wording") {
		t.Error("expected suggestion description in response")
	}
}

func TestHandleSuggestions_StatusFilter(t *testing.T) {
	h, _ := setupTest(t)
	seedAnalysis(t, h, "01A", prompt.Structured{
		PromptRefinements: []prompt.Refinement{{
			TargetFile:      "system.md",
			Description:     "tighten wording",
			SuggestedChange: "Be concise.",
		}},
	})

	req := httptest.NewRequest("GET", "/suggestions?status=rejected", nil)
	rec := httptest.NewRecorder()
	h.HandleSuggestions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "01A_ref_0") {
		t.Error("did not expect pending suggestion under rejected filter")
	}
	if !strings.Contains(body, "No suggestions") {
		t.Error("expected empty state message")
	}
}

func TestHandleSuggestions_InvalidStatus(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/suggestions?status=bogus", nil)
	rec := httptest.NewRecorder()
	h.HandleSuggestions(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- HandleAnalyses ---

func TestHandleAnalyses_ListAndSearch(t *testing.T) {
	h, _ := setupTest(t)
	seedAnalysis(t, h, "01A", prompt.Structured{})
	seedAnalysis(t, h, "01B", prompt.Structured{})

	req := httptest.NewRequest("GET", "/analyses", nil)
	rec := httptest.NewRecorder()
	h.HandleAnalyses(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "01A") || !strings.Contains(body, "01B") {
		t.Error("expected both analyses in response")
	}

	req = httptest.NewRequest("GET", "/analyses?q=01B", nil)
	rec = httptest.NewRecorder()
	h.HandleAnalyses(rec, req)

	body = rec.Body.String()
	if !strings.Contains(body, "/analyses/01B") {
		t.Error("expected matching analysis in search results")
	}
	if strings.Contains(body, "/analyses/01A\"") {
		t.Error("did not expect non-matching analysis in search results")
	}
}

// --- HandleAnalysisDetail ---

func TestHandleAnalysisDetail_Found(t *testing.T) {
	h, _ := setupTest(t)
	seedAnalysis(t, h, "01A", prompt.Structured{
		PerformancePatterns: []prompt.Pattern{{
			PatternType: "latency",
			Description: "slow responses on long context",
			Frequency:   3,
		}},
	})

	req := httptest.NewRequest("GET", "/analyses/01A", nil)
	req.SetPathValue("id", "01A")
	rec := httptest.NewRecorder()
	h.HandleAnalysisDetail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h2>Findings</h2>") {
		t.Error("expected rendered analysis markdown")
	}
	if !strings.Contains(body, "slow responses on long context") {
		t.Error("expected performance pattern in response")
	}
}

func TestHandleAnalysisDetail_NotFound(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/analyses/NONEXISTENT", nil)
	req.SetPathValue("id", "NONEXISTENT")
	rec := httptest.NewRecorder()
	h.HandleAnalysisDetail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// --- Error rendering ---

func TestErrorRendering_JSONError(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/versions/NONEXISTENT", nil)
	req.SetPathValue("id", "NONEXISTENT")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleVersionDetail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if resp["success"] != false {
		t.Errorf("success = %v, want false", resp["success"])
	}
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatal("expected error object in JSON response")
	}
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("error.code = %v, want NOT_FOUND", errObj["code"])
	}
	if errObj["status"] != float64(404) {
		t.Errorf("error.status = %v, want 404", errObj["status"])
	}
}

func TestErrorRendering_FullErrorPage(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/versions/NONEXISTENT", nil)
	req.SetPathValue("id", "NONEXISTENT")
	rec := httptest.NewRecorder()
	h.HandleVersionDetail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("full error page should contain layout")
	}
	if !strings.Contains(body, "404") {
		t.Error("error page should show status code")
	}
}

// --- Server wiring ---

func TestSecurityHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	securityHeaders(inner).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); !strings.Contains(got, "default-src 'self'") {
		t.Errorf("Content-Security-Policy = %q, want default-src 'self'", got)
	}
}

// --- Helper functions ---

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query    string
		name     string
		def      int
		expected int
	}{
		{"", "limit", 20, 20},
		{"limit=50", "limit", 20, 50},
		{"limit=bad", "limit", 20, 20},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/?"+tt.query, nil)
		got := parseIntParam(req, tt.name, tt.def)
		if got != tt.expected {
			t.Errorf("parseIntParam(%q, %q, %d) = %d, want %d", tt.query, tt.name, tt.def, got, tt.expected)
		}
	}
}
