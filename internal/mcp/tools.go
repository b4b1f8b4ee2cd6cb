package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions

var snapshotToolDef = mcp.NewTool("prompt_snapshot",
	mcp.WithDescription("Capture the current prompt file set as a new immutable version."),
	mcp.WithString("label", mcp.Description("Optional label; becomes the version ID. Letters, digits, underscores, hyphens.")),
	mcp.WithString("description", mcp.Description("Why the snapshot is being taken.")),
)

var versionsToolDef = mcp.NewTool("prompt_versions",
	mcp.WithDescription("List prompt versions, newest first."),
	mcp.WithNumber("limit", mcp.Description("Maximum versions to return (default 20, max 100).")),
)

var versionGetToolDef = mcp.NewTool("prompt_version_get",
	mcp.WithDescription("Fetch one prompt version in full, files and changes included."),
	mcp.WithString("version_id", mcp.Required(), mcp.Description("Version to fetch.")),
)

var rollbackToolDef = mcp.NewTool("prompt_rollback",
	mcp.WithDescription("Restore the prompt files from a prior version. A pre_rollback backup of the current state is taken unless disabled."),
	mcp.WithString("version_id", mcp.Required(), mcp.Description("Version to restore.")),
	mcp.WithBoolean("create_backup", mcp.Description("Snapshot the current state first (default true).")),
)

var diffToolDef = mcp.NewTool("prompt_diff",
	mcp.WithDescription("Compare two prompt versions file by file."),
	mcp.WithString("from", mcp.Required(), mcp.Description("Older version ID.")),
	mcp.WithString("to", mcp.Required(), mcp.Description("Newer version ID.")),
)

var cleanupToolDef = mcp.NewTool("prompt_cleanup",
	mcp.WithDescription("Delete prompt versions beyond the most recent keep_count. Backups referenced by pending suggestions are not exempt; choose keep_count accordingly."),
	mcp.WithNumber("keep_count", mcp.Description("Versions to keep (default from configuration).")),
)

var exportToolDef = mcp.NewTool("prompt_export",
	mcp.WithDescription("Write a version's files to a directory."),
	mcp.WithString("version_id", mcp.Required(), mcp.Description("Version to export.")),
	mcp.WithString("path", mcp.Description("Destination directory (default under the exports tree).")),
)

var suggestionsToolDef = mcp.NewTool("prompt_suggestions",
	mcp.WithDescription("List improvement suggestions. With analysis_id, extracts and returns that analysis's suggestions."),
	mcp.WithString("analysis_id", mcp.Description("Return suggestions for one analysis.")),
	mcp.WithString("status", mcp.Description("Filter: pending, applied, or rejected.")),
	mcp.WithNumber("limit", mcp.Description("Maximum suggestions to return (default 20, max 100).")),
)

var suggestionApplyToolDef = mcp.NewTool("prompt_suggestion_apply",
	mcp.WithDescription("Apply an approved prompt refinement to its target file. A backup version is created first. Requires approved=true on every call."),
	mcp.WithString("suggestion_id", mcp.Required(), mcp.Description("Suggestion to apply.")),
	mcp.WithString("analysis_id", mcp.Required(), mcp.Description("Analysis the suggestion belongs to.")),
	mcp.WithBoolean("approved", mcp.Description("Must be true; there is no default or override.")),
)

var suggestionRejectToolDef = mcp.NewTool("prompt_suggestion_reject",
	mcp.WithDescription("Reject a pending suggestion. Terminal states are final."),
	mcp.WithString("suggestion_id", mcp.Required(), mcp.Description("Suggestion to reject.")),
)

var analysesToolDef = mcp.NewTool("prompt_analyses",
	mcp.WithDescription("List stored analyses, newest first."),
	mcp.WithString("search", mcp.Description("Substring match over analysis content.")),
	mcp.WithNumber("limit", mcp.Description("Maximum analyses to return (default 20, max 100).")),
)

var analysisGetToolDef = mcp.NewTool("prompt_analysis_get",
	mcp.WithDescription("Fetch one stored analysis in full."),
	mcp.WithString("analysis_id", mcp.Required(), mcp.Description("Analysis to fetch.")),
)

var analyzeToolDef = mcp.NewTool("prompt_analyze",
	mcp.WithDescription("Run the analyzer over recent activity and store the resulting analysis and suggestions."),
	mcp.WithString("context_id", mcp.Description("Transcript context to analyze (default \"default\").")),
	mcp.WithBoolean("background", mcp.Description("Return immediately and persist the analysis when it completes.")),
)
