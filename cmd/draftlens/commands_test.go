package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDraft(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLocateCommand(t *testing.T) {
	path := writeDraft(t, "draft.txt", "Dear Alex,\n\nI hope this finds you well.")
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"exact", "I hope this finds you well.", "found (exact)"},
		{"loose", "I hope this finds you well!", "found (loose)"},
		{"missing", "quarterly budget review", "not found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, "locate", path, tc.query)
			if err != nil {
				t.Fatalf("locate: %v", err)
			}
			if !strings.Contains(out, tc.want) {
				t.Errorf("output = %q, want %q", out, tc.want)
			}
		})
	}
}

func TestExportCommand(t *testing.T) {
	path := writeDraft(t, "draft.md", "# Invite\n\nSee you **soon**.")
	out, err := run(t, "export", path, "--format", "md")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out != "# Invite\n\nSee you **soon**." {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, "export", path, "--format", "pdf"); err == nil {
		t.Error("expected unknown format error")
	}
}

func TestAnnotateCommand_BadIntent(t *testing.T) {
	path := writeDraft(t, "draft.txt", "Dear Alex,")
	if _, err := run(t, "annotate", path, "Dear Alex,", "--intent", "novalue"); err == nil {
		t.Error("expected error for malformed intent")
	}
}

func TestUnsupportedFile(t *testing.T) {
	path := writeDraft(t, "draft.csv", "a,b")
	if _, err := run(t, "locate", path, "a"); err == nil {
		t.Error("expected unsupported file error")
	}
}
