package pipeline

import (
	"errors"
	"testing"

	"github.com/dgallion1/draftlens/internal/components"
	"github.com/dgallion1/draftlens/internal/document"
)

func editRegistry() *components.Registry {
	reg := components.NewRegistry()
	reg.Replace([]components.Component{
		{ID: "c1", Title: "Greeting", Content: "Dear Alex,"},
		{ID: "c2", Title: "Wellbeing", Content: "I hope this finds you well."},
	})
	reg.SetIntents([]document.Intent{
		{Dimension: "Formality", CurrentValue: "formal", OtherValues: []string{"casual"}},
	})
	reg.SetLinks([]components.Link{
		{ComponentID: "c1", IntentDimension: "Formality"},
		{ComponentID: "c2", IntentDimension: "Formality"},
	})
	return reg
}

func TestApplyEdit(t *testing.T) {
	reg := editRegistry()
	doc := "Dear Alex, I hope this finds you well.\n\nBest,\nSam"

	res, err := ApplyEdit(reg, "c2", "I hope this finds you well.", "Hope you're doing great!", doc)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	want := "Dear Alex, Hope you're doing great!\n\nBest,\nSam"
	if res.Text != want {
		t.Errorf("text = %q, want %q", res.Text, want)
	}
	if c, _ := reg.Get("c2"); c.Content != "Hope you're doing great!" {
		t.Errorf("registry not updated: %+v", c)
	}

	var highlighted, c1Markers string
	for _, l := range res.Blocks[0].Leaves {
		if l.Highlight != nil {
			highlighted += l.Text
			if l.Highlight.ComponentID != "c2" {
				t.Errorf("highlight on wrong component %+v", l.Highlight)
			}
		}
		if l.Dimensions != nil && l.Dimensions.ComponentID == "c1" {
			c1Markers += l.Text
		}
	}
	if highlighted != "Hope you're doing great!" {
		t.Errorf("highlighted = %q", highlighted)
	}
	if c1Markers != "Dear Alex," {
		t.Errorf("c1 markers = %q", c1Markers)
	}
	if len(res.Missing) != 0 {
		t.Errorf("unexpected missing %v", res.Missing)
	}
}

func TestApplyEdit_ReplacesOnlyFirstOccurrence(t *testing.T) {
	reg := components.NewRegistry()
	reg.Replace([]components.Component{{ID: "c1", Content: "Thanks."}})
	res, err := ApplyEdit(reg, "c1", "Thanks.", "Thank you.", "Thanks.\n\nThanks.")
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if res.Text != "Thank you.\n\nThanks." {
		t.Errorf("text = %q", res.Text)
	}
}

func TestApplyEdit_WhitespaceDrift(t *testing.T) {
	reg := editRegistry()
	doc := "Dear Alex,\nI hope  this finds you well."
	res, err := ApplyEdit(reg, "c2", "I hope this finds you well.", "Hi!", doc)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if res.Text != "Dear Alex,\nHi!" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestApplyEdit_Stale(t *testing.T) {
	reg := editRegistry()
	tests := []struct {
		name string
		old  string
	}{
		{"absent", "See you Friday."},
		{"empty", "  "},
		{"punctuation only match", "I hope this finds you well?"},
	}
	doc := "Dear Alex, I hope this finds you well!"
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ApplyEdit(reg, "c2", tc.old, "x", doc)
			if !errors.Is(err, ErrStaleContent) {
				t.Fatalf("expected ErrStaleContent, got %v", err)
			}
		})
	}
	if c, _ := reg.Get("c2"); c.Content != "I hope this finds you well." {
		t.Error("registry must not change on a stale edit")
	}
}

func TestApplyEdit_UnknownComponent(t *testing.T) {
	_, err := ApplyEdit(editRegistry(), "nope", "Dear Alex,", "Hi", "Dear Alex,")
	if !errors.Is(err, components.ErrUnknownComponent) {
		t.Fatalf("expected ErrUnknownComponent, got %v", err)
	}
}
