package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/graft-sh/graft/internal/config"
	"github.com/graft-sh/graft/internal/db"
	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/fileset"
	"github.com/graft-sh/graft/internal/prompt"
)

// testSetup creates a temporary database, prompt dir, and config for testing.
func testSetup(t *testing.T) (*Handlers, *sql.DB, *fileset.Dir) {
	t.Helper()

	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	files, err := fileset.NewDir(filepath.Join(baseDir, "prompts"))
	if err != nil {
		t.Fatalf("failed to create prompt dir: %v", err)
	}

	cfg := config.DefaultConfig()
	h := NewHandlers(database, cfg, files, nil, baseDir)
	return h, database, files
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func parsePayload(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("content is not TextContent")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	return payload
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	payload := parsePayload(t, result)
	if payload["success"] != false {
		t.Errorf("success = %v, want false", payload["success"])
	}
	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in payload: %v", payload)
	}
	if code, _ := errorObj["code"].(string); code != expectedCode {
		t.Errorf("got error code %q, want %q", errorObj["code"], expectedCode)
	}
}

func TestHandleSnapshotAndVersions(t *testing.T) {
	h, _, files := testSetup(t)
	ctx := context.Background()

	if err := files.Write("system.md", "be helpful"); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	result, err := h.HandleSnapshot(ctx, makeRequest(map[string]any{
		"label":       "v1",
		"description": "baseline",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got %v", parsePayload(t, result))
	}
	payload := parsePayload(t, result)
	if payload["success"] != true {
		t.Errorf("success = %v, want true", payload["success"])
	}
	if payload["version_id"] != "v1" {
		t.Errorf("version_id = %v, want v1", payload["version_id"])
	}

	// Duplicate label surfaces as a structured error, not a handler error
	result, err = h.HandleSnapshot(ctx, makeRequest(map[string]any{"label": "v1"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for duplicate label")
	}
	assertErrorCode(t, result, "DUPLICATE_LABEL")

	result, err = h.HandleVersions(ctx, makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	payload = parsePayload(t, result)
	if payload["count"] != float64(1) {
		t.Errorf("count = %v, want 1", payload["count"])
	}
}

func TestHandleRollback_DefaultsToBackup(t *testing.T) {
	h, _, files := testSetup(t)
	ctx := context.Background()

	if err := files.Write("a.md", "old"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if result, _ := h.HandleSnapshot(ctx, makeRequest(map[string]any{"label": "v1"})); result.IsError {
		t.Fatalf("snapshot failed: %v", parsePayload(t, result))
	}
	if err := files.Write("a.md", "new"); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	result, err := h.HandleRollback(ctx, makeRequest(map[string]any{"version_id": "v1"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("rollback failed: %v", parsePayload(t, result))
	}
	payload := parsePayload(t, result)
	if payload["backup_version_id"] == nil {
		t.Error("backup_version_id missing; create_backup should default to true")
	}

	result, err = h.HandleRollback(ctx, makeRequest(map[string]any{
		"version_id":    "v1",
		"create_backup": false,
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	payload = parsePayload(t, result)
	if _, ok := payload["backup_version_id"]; ok {
		t.Error("backup_version_id present despite create_backup=false")
	}
}

func TestHandleSuggestionLifecycle(t *testing.T) {
	h, database, files := testSetup(t)
	ctx := context.Background()

	if err := files.Write("a.md", "old"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	analysis := &prompt.Analysis{
		ID:        "01A",
		Timestamp: 1700000000,
		Content:   "analysis",
		Structured: prompt.Structured{
			PromptRefinements: []prompt.Refinement{{
				TargetFile:      "a.md",
				Description:     "rewrite",
				Rationale:       "r",
				SuggestedChange: "new",
			}},
		},
	}
	if err := db.InsertAnalysis(database, analysis); err != nil {
		t.Fatalf("insert analysis failed: %v", err)
	}

	// Extraction via the suggestions tool with analysis_id
	result, err := h.HandleSuggestions(ctx, makeRequest(map[string]any{"analysis_id": "01A"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	payload := parsePayload(t, result)
	if payload["created"] != float64(1) {
		t.Errorf("created = %v, want 1", payload["created"])
	}

	// Apply without approval is refused
	result, err = h.HandleSuggestionApply(ctx, makeRequest(map[string]any{
		"suggestion_id": "01A_ref_0",
		"analysis_id":   "01A",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "APPROVAL_REQUIRED")

	result, err = h.HandleSuggestionApply(ctx, makeRequest(map[string]any{
		"suggestion_id": "01A_ref_0",
		"analysis_id":   "01A",
		"approved":      true,
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("apply failed: %v", parsePayload(t, result))
	}
	payload = parsePayload(t, result)
	if payload["status"] != "applied" {
		t.Errorf("status = %v, want applied", payload["status"])
	}

	// Rejecting the now-applied suggestion is an invalid transition
	result, err = h.HandleSuggestionReject(ctx, makeRequest(map[string]any{"suggestion_id": "01A_ref_0"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_TRANSITION")
}

func TestHandleAnalyze_NoAnalyzer(t *testing.T) {
	h, _, _ := testSetup(t)

	result, err := h.HandleAnalyze(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "ANALYSIS_FAILED")
}

func TestServerRegistration(t *testing.T) {
	h, database, _ := testSetup(t)

	s := NewServer(database, h.cfg, h.files, nil, h.baseDir, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"prompt_snapshot",
		"prompt_versions",
		"prompt_version_get",
		"prompt_rollback",
		"prompt_diff",
		"prompt_cleanup",
		"prompt_export",
		"prompt_suggestions",
		"prompt_suggestion_apply",
		"prompt_suggestion_reject",
		"prompt_analyses",
		"prompt_analysis_get",
		"prompt_analyze",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	h, database, _ := testSetup(t)

	cfg := config.DefaultConfig()
	cfg.DisabledTools = []string{"prompt_cleanup", "prompt_export"}
	s := NewServer(database, cfg, h.files, nil, h.baseDir, "test")
	tools := s.ListTools()

	if len(tools) != len(toolRegistry)-2 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry)-2)
	}
	for _, name := range cfg.DisabledTools {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"prompt_snapshot", "bogus_tool"})
	if len(unknown) != 1 || unknown[0] != "bogus_tool" {
		t.Errorf("unknown = %v, want [bogus_tool]", unknown)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	result := errorResult(errors.NewInternal(sql.ErrConnDone))
	payload := parsePayload(t, result)
	errorObj := payload["error"].(map[string]any)
	if _, ok := errorObj["details"]; ok {
		t.Error("internal error details should not be exposed")
	}
	if payload["success"] != false {
		t.Errorf("success = %v, want false", payload["success"])
	}
}
