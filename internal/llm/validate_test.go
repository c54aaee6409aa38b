package llm

import (
	"strings"
	"testing"

	"github.com/dgallion1/draftlens/internal/components"
	"github.com/dgallion1/draftlens/internal/document"
)

func TestValidateComponents(t *testing.T) {
	in := []components.Component{
		{ID: " 1 ", Title: " Greeting ", Content: " Dear Alex, "},
		{ID: "2", Content: "   "},
		{ID: "", Content: "Could we meet?"},
		{ID: "1", Content: "duplicate"},
	}
	got := ValidateComponents(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 components, got %+v", got)
	}
	if got[0].ID != "1" || got[0].Title != "Greeting" || got[0].Content != "Dear Alex," {
		t.Errorf("unexpected first component %+v", got[0])
	}
	if got[1].ID != "3" {
		t.Errorf("expected positional id 3, got %q", got[1].ID)
	}
}

func TestValidateIntents(t *testing.T) {
	in := []document.Intent{
		{Dimension: "  ", CurrentValue: "x"},
		{Dimension: " Tone ", CurrentValue: "warm", OtherValues: []string{"warm", "", "direct"}},
	}
	got := ValidateIntents(in)
	if len(got) != 1 {
		t.Fatalf("expected 1 intent, got %+v", got)
	}
	if got[0].Dimension != "Tone" {
		t.Errorf("dimension = %q", got[0].Dimension)
	}
	if len(got[0].OtherValues) != 1 || got[0].OtherValues[0] != "direct" {
		t.Errorf("other values = %v", got[0].OtherValues)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"alice", "alice"},
		{"Alice Smith", "alice-smith"},
		{"  task 42!! ", "task-42"},
		{"a/../b", "a-b"},
		{"snake_case", "snake_case"},
		{strings.Repeat("x", 80), strings.Repeat("x", 64)},
	}
	for _, tc := range tests {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUserFromTask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"alice_1700000000", "alice"},
		{"bob_task_2", "bob"},
		{"nounderscore", "nounderscore"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := UserFromTask(tc.in); got != tc.want {
			t.Errorf("UserFromTask(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
