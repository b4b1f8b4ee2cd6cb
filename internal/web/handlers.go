package web

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/graft-sh/graft/internal/config"
	"github.com/graft-sh/graft/internal/ops"
	"github.com/graft-sh/graft/internal/prompt"
)

// Handlers contains HTTP route handlers for the read-only viewer.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
}

// HandleVersions handles GET /versions.
func (h *Handlers) HandleVersions(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListVersions(h.db, ops.ListVersionsInput{
		Limit: parseIntParam(r, "limit", ops.DefaultListLimit),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "versions", VersionsPageData{
		PageData: PageData{
			Title:   "Versions",
			Version: h.renderer.version,
			Nav:     "versions",
		},
		Versions: result.Versions,
	})
}

// HandleVersionDetail handles GET /versions/{id}.
func (h *Handlers) HandleVersionDetail(w http.ResponseWriter, r *http.Request) {
	snapshot, err := ops.GetVersion(h.db, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	files := make([]RenderedFile, 0, len(snapshot.Files))
	for _, f := range snapshot.Files {
		files = append(files, RenderedFile{
			Path:     f.Path,
			Hash:     f.Hash,
			Rendered: renderMarkdown(f.Content),
		})
	}

	h.renderer.renderPage(w, "version", VersionPageData{
		PageData: PageData{
			Title:   snapshot.VersionID,
			Version: h.renderer.version,
			Nav:     "versions",
		},
		Snapshot: snapshot,
		Files:    files,
	})
}

// HandleSuggestions handles GET /suggestions.
func (h *Handlers) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	result, err := ops.ListSuggestions(h.db, ops.ListSuggestionsInput{
		Status: prompt.Status(status),
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	suggestions := make([]RenderedSuggestion, 0, len(result.Suggestions))
	for _, s := range result.Suggestions {
		rendered := RenderedSuggestion{Suggestion: s}
		if s.SuggestedChange != "" {
			rendered.Rendered = renderMarkdown(s.SuggestedChange)
		}
		suggestions = append(suggestions, rendered)
	}

	h.renderer.renderPage(w, "suggestions", SuggestionsPageData{
		PageData: PageData{
			Title:   "Suggestions",
			Version: h.renderer.version,
			Nav:     "suggestions",
		},
		Suggestions: suggestions,
		Status:      status,
	})
}

// HandleAnalyses handles GET /analyses.
func (h *Handlers) HandleAnalyses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	result, err := ops.ListAnalyses(h.db, ops.ListAnalysesInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Search: query,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "analyses", AnalysesPageData{
		PageData: PageData{
			Title:   "Analyses",
			Version: h.renderer.version,
			Nav:     "analyses",
		},
		Analyses: result.Analyses,
		Query:    query,
	})
}

// HandleAnalysisDetail handles GET /analyses/{id}.
func (h *Handlers) HandleAnalysisDetail(w http.ResponseWriter, r *http.Request) {
	analysis, err := ops.GetAnalysis(h.db, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "analysis", AnalysisPageData{
		PageData: PageData{
			Title:   "Analysis " + analysis.ID,
			Version: h.renderer.version,
			Nav:     "analyses",
		},
		Analysis: analysis,
		Rendered: renderMarkdown(analysis.Content),
	})
}

// parseIntParam parses an integer query parameter with a fallback default.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
