package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/graft-sh/graft/internal/errors"
	"github.com/graft-sh/graft/internal/ops"
	"github.com/graft-sh/graft/internal/prompt"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "versions", "suggestions", "analyses"
}

// VersionsPageData is the template data for the version list page.
type VersionsPageData struct {
	PageData
	Versions []prompt.Summary
}

// RenderedFile pairs a snapshot file with its markdown rendering.
type RenderedFile struct {
	Path     string
	Hash     string
	Rendered template.HTML
}

// VersionPageData is the template data for the version detail page.
type VersionPageData struct {
	PageData
	Snapshot *prompt.Snapshot
	Files    []RenderedFile
}

// RenderedSuggestion pairs a suggestion with its rendered suggested change.
type RenderedSuggestion struct {
	Suggestion prompt.Suggestion
	Rendered   template.HTML
}

// SuggestionsPageData is the template data for the suggestions page.
type SuggestionsPageData struct {
	PageData
	Suggestions []RenderedSuggestion
	Status      string
}

// AnalysesPageData is the template data for the analysis list page.
type AnalysesPageData struct {
	PageData
	Analyses []ops.AnalysisSummary
	Query    string
}

// AnalysisPageData is the template data for the analysis detail page.
type AnalysisPageData struct {
	PageData
	Analysis *prompt.Analysis
	Rendered template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"formatTime": formatTime,
		"deref":      func(s *string) string { return *s },
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"versions":    "versions.html",
		"version":     "version.html",
		"suggestions": "suggestions.html",
		"analyses":    "analyses.html",
		"analysis":    "analysis.html",
		"error":       "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with HTTP 200.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		log.Printf("template %q not found", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("template execution error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var gErr *errors.GraftError
	if !stderrors.As(err, &gErr) {
		gErr = errors.NewInternal(err)
	}

	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(gErr.Status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error": map[string]any{
				"code":    string(gErr.Code),
				"message": gErr.Message,
				"status":  gErr.Status,
			},
		})
		return
	}

	r.renderPageStatus(w, gErr.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", gErr.Status),
			Version: r.version,
		},
		StatusCode: gErr.Status,
		Message:    gErr.Message,
	})
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}
