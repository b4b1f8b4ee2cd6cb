package prompt

import (
	"strings"
	"testing"
)

func TestIsSafeLabel(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{"baseline", true},
		{"pre_rollback_v1", true},
		{"release-2", true},
		{"A1_b-C", true},
		{"", false},
		{"has space", false},
		{"dots.bad", false},
		{"../escape", false},
		{"semi;colon", false},
	}

	for _, tt := range tests {
		if got := IsSafeLabel(tt.label); got != tt.want {
			t.Errorf("IsSafeLabel(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestHashContent(t *testing.T) {
	a := HashContent("hello")
	b := HashContent("hello")
	c := HashContent("world")

	if a != b {
		t.Errorf("same content hashed differently: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different content produced the same hash")
	}
	if len(a) != 32 {
		t.Errorf("hash length = %d, want 32 hex chars", len(a))
	}
}

func TestSuggestionIDs_Deterministic(t *testing.T) {
	if got := RefinementID("a1", 0); got != "a1_ref_0" {
		t.Errorf("RefinementID = %q, want %q", got, "a1_ref_0")
	}
	if got := ToolSuggestionID("a1", 2); got != "a1_tool_2" {
		t.Errorf("ToolSuggestionID = %q, want %q", got, "a1_tool_2")
	}
}

func TestFromRefinement_Defaults(t *testing.T) {
	s := FromRefinement("a1", 1, Refinement{
		TargetFile:      "agent.system.md",
		SuggestedChange: "new content",
	}, 1700000000)

	if s.ID != "a1_ref_1" {
		t.Errorf("ID = %q, want %q", s.ID, "a1_ref_1")
	}
	if s.Type != TypePromptRefinement {
		t.Errorf("Type = %q, want %q", s.Type, TypePromptRefinement)
	}
	if s.Status != StatusPending {
		t.Errorf("Status = %q, want %q", s.Status, StatusPending)
	}
	if s.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", s.Confidence)
	}
	if s.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want %q", s.Priority, PriorityMedium)
	}
	if s.ToolName != "" {
		t.Errorf("ToolName = %q, want empty for refinement variant", s.ToolName)
	}
}

func TestFromToolCandidate_Defaults(t *testing.T) {
	s := FromToolCandidate("a1", 0, ToolCandidate{ToolName: "pdf_generator"}, 1700000000)

	if s.ID != "a1_tool_0" {
		t.Errorf("ID = %q, want %q", s.ID, "a1_tool_0")
	}
	if s.Priority != PriorityLow {
		t.Errorf("Priority = %q, want %q", s.Priority, PriorityLow)
	}
	if s.TargetFile != "" || s.SuggestedChange != "" {
		t.Error("refinement fields populated on new_tool variant")
	}
}

func TestSnapshotToSummary(t *testing.T) {
	label := "baseline"
	snap := &Snapshot{
		VersionID: "baseline",
		Timestamp: 1700000000,
		Label:     &label,
		CreatedBy: CreatedByManual,
		Files: []File{
			{Path: "a.md", Content: "x", Hash: HashContent("x")},
			{Path: "b.md", Content: "y", Hash: HashContent("y")},
		},
	}

	sum := snap.ToSummary()
	if sum.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", sum.FileCount)
	}
	if sum.VersionID != "baseline" {
		t.Errorf("VersionID = %q, want %q", sum.VersionID, "baseline")
	}
}

func TestAnalysisPreview(t *testing.T) {
	a := &Analysis{Content: strings.Repeat("x", 300)}
	p := a.Preview(200)
	if len([]rune(p)) != 203 {
		t.Errorf("Preview length = %d, want 203 (200 + ellipsis)", len([]rune(p)))
	}

	short := &Analysis{Content: "brief"}
	if short.Preview(200) != "brief" {
		t.Errorf("Preview of short content = %q, want unchanged", short.Preview(200))
	}
}
