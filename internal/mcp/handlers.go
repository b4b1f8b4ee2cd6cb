package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/graft-sh/graft/internal/analyzer"
	"github.com/graft-sh/graft/internal/config"
	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/fileset"
	"github.com/graft-sh/graft/internal/ops"
	"github.com/graft-sh/graft/internal/prompt"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	files    fileset.Provider
	analyzer analyzer.Analyzer
	baseDir  string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, files fileset.Provider, a analyzer.Analyzer, baseDir string) *Handlers {
	return &Handlers{db: db, cfg: cfg, files: files, analyzer: a, baseDir: baseDir}
}

// Request types for each tool

// SnapshotRequest represents the arguments for prompt_snapshot.
type SnapshotRequest struct {
	Label       *string `json:"label,omitempty"`
	Description string  `json:"description,omitempty"`
}

// VersionsRequest represents the arguments for prompt_versions.
type VersionsRequest struct {
	Limit int `json:"limit,omitempty"`
}

// VersionGetRequest represents the arguments for prompt_version_get.
type VersionGetRequest struct {
	VersionID string `json:"version_id"`
}

// RollbackRequest represents the arguments for prompt_rollback.
type RollbackRequest struct {
	VersionID    string `json:"version_id"`
	CreateBackup *bool  `json:"create_backup,omitempty"` // default true
}

// DiffRequest represents the arguments for prompt_diff.
type DiffRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CleanupRequest represents the arguments for prompt_cleanup.
type CleanupRequest struct {
	KeepCount int `json:"keep_count,omitempty"`
}

// ExportRequest represents the arguments for prompt_export.
type ExportRequest struct {
	VersionID string `json:"version_id"`
	Path      string `json:"path,omitempty"`
}

// SuggestionsRequest represents the arguments for prompt_suggestions.
type SuggestionsRequest struct {
	AnalysisID string `json:"analysis_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// SuggestionApplyRequest represents the arguments for prompt_suggestion_apply.
type SuggestionApplyRequest struct {
	SuggestionID string `json:"suggestion_id"`
	AnalysisID   string `json:"analysis_id"`
	Approved     bool   `json:"approved,omitempty"`
}

// SuggestionRejectRequest represents the arguments for prompt_suggestion_reject.
type SuggestionRejectRequest struct {
	SuggestionID string `json:"suggestion_id"`
}

// AnalysesRequest represents the arguments for prompt_analyses.
type AnalysesRequest struct {
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// AnalysisGetRequest represents the arguments for prompt_analysis_get.
type AnalysisGetRequest struct {
	AnalysisID string `json:"analysis_id"`
}

// AnalyzeRequest represents the arguments for prompt_analyze.
type AnalyzeRequest struct {
	ContextID  string `json:"context_id,omitempty"`
	Background bool   `json:"background,omitempty"`
}

// Handler implementations

// HandleSnapshot handles the prompt_snapshot tool call.
func (h *Handlers) HandleSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SnapshotRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var changes []prompt.Change
	if input.Description != "" {
		changes = []prompt.Change{{
			File:        "*",
			Description: input.Description,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}}
	}

	result, err := ops.Snapshot(h.db, h.files, ops.SnapshotInput{
		Changes:   changes,
		CreatedBy: prompt.CreatedByManual,
		Label:     input.Label,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleVersions handles the prompt_versions tool call.
func (h *Handlers) HandleVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VersionsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListVersions(h.db, ops.ListVersionsInput{Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleVersionGet handles the prompt_version_get tool call.
func (h *Handlers) HandleVersionGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VersionGetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	snapshot, err := ops.GetVersion(h.db, input.VersionID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"version": snapshot})
}

// HandleRollback handles the prompt_rollback tool call.
func (h *Handlers) HandleRollback(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RollbackRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	createBackup := true
	if input.CreateBackup != nil {
		createBackup = *input.CreateBackup
	}

	result, err := ops.Rollback(h.db, h.files, ops.RollbackInput{
		VersionID:    input.VersionID,
		CreateBackup: createBackup,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDiff handles the prompt_diff tool call.
func (h *Handlers) HandleDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DiffRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Diff(h.db, ops.DiffInput{From: input.From, To: input.To})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCleanup handles the prompt_cleanup tool call.
func (h *Handlers) HandleCleanup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CleanupRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	keepCount := input.KeepCount
	if keepCount == 0 {
		keepCount = h.cfg.KeepVersions
	}

	result, err := ops.Cleanup(h.db, ops.CleanupInput{KeepCount: keepCount})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the prompt_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(h.db, h.cfg, h.baseDir, ops.ExportInput{
		VersionID: input.VersionID,
		Path:      input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSuggestions handles the prompt_suggestions tool call.
// With analysis_id set, the analysis's suggestions are extracted (idempotent)
// and returned; otherwise suggestions are listed across analyses.
func (h *Handlers) HandleSuggestions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SuggestionsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.AnalysisID != "" {
		result, err := ops.Extract(h.db, input.AnalysisID)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}

	result, err := ops.ListSuggestions(h.db, ops.ListSuggestionsInput{
		Status: prompt.Status(input.Status),
		Limit:  input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSuggestionApply handles the prompt_suggestion_apply tool call.
func (h *Handlers) HandleSuggestionApply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SuggestionApplyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Apply(h.db, h.files, ops.ApplyInput{
		SuggestionID: input.SuggestionID,
		AnalysisID:   input.AnalysisID,
		Approved:     input.Approved,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSuggestionReject handles the prompt_suggestion_reject tool call.
func (h *Handlers) HandleSuggestionReject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SuggestionRejectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Reject(h.db, input.SuggestionID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAnalyses handles the prompt_analyses tool call.
func (h *Handlers) HandleAnalyses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AnalysesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListAnalyses(h.db, ops.ListAnalysesInput{
		Limit:  input.Limit,
		Search: input.Search,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAnalysisGet handles the prompt_analysis_get tool call.
func (h *Handlers) HandleAnalysisGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AnalysisGetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	analysis, err := ops.GetAnalysis(h.db, input.AnalysisID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"analysis": analysis})
}

// HandleAnalyze handles the prompt_analyze tool call. A background request is
// acknowledged immediately; the analysis becomes listable only once fully
// persisted, and a failed run leaves no trace beyond a log line.
func (h *Handlers) HandleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AnalyzeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if h.analyzer == nil {
		return errorResult(errors.NewAnalysisFailed(nil)), nil
	}

	opsInput := ops.TriggerAnalysisInput{
		ContextID:  input.ContextID,
		MaxHistory: h.cfg.MaxHistory,
	}

	if input.Background {
		go func() {
			if _, err := ops.TriggerAnalysis(context.Background(), h.db, h.analyzer, opsInput); err != nil {
				log.Printf("background analysis failed: %v", err)
			}
		}()
		return successResult(map[string]any{"background": true, "status": "started"})
	}

	result, err := ops.TriggerAnalysis(ctx, h.db, h.analyzer, opsInput)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if gErr, ok := err.(*errors.GraftError); ok {
		errorObj := map[string]any{
			"code":    gErr.Code,
			"message": gErr.Message,
			"status":  gErr.Status,
		}
		if gErr.Code != errors.ErrInternal && gErr.Details != nil {
			errorObj["details"] = gErr.Details
		}
		payload = map[string]any{"success": false, "error": errorObj}
	} else {
		payload = map[string]any{
			"success": false,
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result carrying the success envelope.
func successResult(data any) (*mcp.CallToolResult, error) {
	payload := map[string]any{"success": true}

	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		payload[k] = v
	}

	return mcp.NewToolResultJSON(payload)
}
