package analyzer

import (
	"context"

	"github.com/graft-sh/graft/internal/prompt"
)

// Analyzer produces an analysis of recent agent activity. The engine treats
// the result as an opaque record plus a typed structured payload; how the
// analyzer arrives at it is its own concern, including timeouts.
type Analyzer interface {
	// Run analyzes up to maxHistory recent transcript entries for the given
	// context and returns the analysis. ID and Timestamp are assigned by the
	// caller when the analysis is persisted.
	Run(ctx context.Context, contextID string, maxHistory int) (*prompt.Analysis, error)
}

// HistorySource supplies recent transcript text for a context.
type HistorySource interface {
	// Recent returns up to limit recent transcript entries as text.
	// An empty string means there is nothing to analyze yet.
	Recent(contextID string, limit int) (string, error)
}
