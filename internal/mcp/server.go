package mcp

import (
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/graft-sh/graft/internal/analyzer"
	"github.com/graft-sh/graft/internal/config"
	"github.com/graft-sh/graft/internal/fileset"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"prompt_snapshot": {
		def:     snapshotToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSnapshot },
	},
	"prompt_versions": {
		def:     versionsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleVersions },
	},
	"prompt_version_get": {
		def:     versionGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleVersionGet },
	},
	"prompt_rollback": {
		def:     rollbackToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRollback },
	},
	"prompt_diff": {
		def:     diffToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiff },
	},
	"prompt_cleanup": {
		def:     cleanupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCleanup },
	},
	"prompt_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"prompt_suggestions": {
		def:     suggestionsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSuggestions },
	},
	"prompt_suggestion_apply": {
		def:     suggestionApplyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSuggestionApply },
	},
	"prompt_suggestion_reject": {
		def:     suggestionRejectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSuggestionReject },
	},
	"prompt_analyses": {
		def:     analysesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnalyses },
	},
	"prompt_analysis_get": {
		def:     analysisGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnalysisGet },
	},
	"prompt_analyze": {
		def:     analyzeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnalyze },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with graft tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, files fileset.Provider, a analyzer.Analyzer, baseDir, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"graft",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, files, a, baseDir)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, files fileset.Provider, a analyzer.Analyzer, baseDir, version string) error {
	s := NewServer(db, cfg, files, a, baseDir, version)
	return server.ServeStdio(s)
}
