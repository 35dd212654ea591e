package fsops

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// =============================================================================
// LIST / GLOB / REGEX SEARCH
// =============================================================================

func seedTree(t *testing.T, ws *Workspace, files map[string]string) {
	t.Helper()
	for path, content := range files {
		abs := filepath.Join(ws.Root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListSortsDirectoriesFirst(t *testing.T) {
	t.Parallel()
	ws := newTestWorkspace(t)
	seedTree(t, ws, map[string]string{
		"zeta.txt":      "z",
		"alpha.txt":     "a",
		"lib/util.go":   "",
		"app/main.go":   "",
		".git/config":   "",
		"node_modules/x": "",
	})

	entries, err := ws.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []Entry{
		{Name: "app", IsDir: true},
		{Name: "lib", IsDir: true},
		{Name: "alpha.txt"},
		{Name: "zeta.txt"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestListHonorsGitignore(t *testing.T) {
	t.Parallel()
	ws := newTestWorkspace(t)
	seedTree(t, ws, map[string]string{
		".gitignore": "*.log\nsecrets/\n",
		"app.go":     "",
		"debug.log":  "",
		"secrets/k":  "",
	})
	// Ignore rules are read when the workspace opens.
	ws, err := NewWorkspace(ws.Root)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := ws.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []Entry{
		{Name: ".gitignore"},
		{Name: "app.go"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestListMissingDirectory(t *testing.T) {
	t.Parallel()
	ws := newTestWorkspace(t)

	if _, err := ws.List("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("List = %v, want ErrNotFound", err)
	}
}

func TestGlob(t *testing.T) {
	t.Parallel()
	ws := newTestWorkspace(t)
	seedTree(t, ws, map[string]string{
		"main.go":          "",
		"lib/util.go":      "",
		"lib/util_test.go": "",
		"docs/readme.md":   "",
	})

	tests := []struct {
		name    string
		pattern string
		want    []string
		wantErr error
	}{
		{"all go files", "**/*.go", []string{"lib/util.go", "lib/util_test.go", "main.go"}, nil},
		{"single dir", "lib/*.go", []string{"lib/util.go", "lib/util_test.go"}, nil},
		{"no matches", "**/*.rs", []string{}, nil},
		{"traversal rejected", "../**/*.go", nil, ErrConfinement},
		{"absolute rejected", "/etc/*", nil, ErrConfinement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ws.Glob(tt.pattern)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Glob(%q) = %v, want %v", tt.pattern, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Glob(%q): %v", tt.pattern, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Glob mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearchRegexCountsPerFile(t *testing.T) {
	t.Parallel()
	ws := newTestWorkspace(t)
	seedTree(t, ws, map[string]string{
		"a.go":            "func A() {}\nfunc B() {}\n",
		"sub/b.go":        "func C() {}\n",
		"sub/data.txt":    "no functions here\n",
		"node_modules/c":  "func D() {}\n",
	})

	matches, err := ws.SearchRegex(`func \w+\(`, "")
	if err != nil {
		t.Fatalf("SearchRegex: %v", err)
	}
	want := []RegexMatch{
		{Path: "a.go", Count: 2},
		{Path: "sub/b.go", Count: 1},
	}
	if diff := cmp.Diff(want, matches); diff != "" {
		t.Fatalf("SearchRegex mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchRegexAppliesIgnoreFileToDirectories(t *testing.T) {
	t.Parallel()
	ws := newTestWorkspace(t)
	seedTree(t, ws, map[string]string{
		".gitignore":   "generated/\n",
		"real.go":      "package main\n",
		"generated/g.go": "package main\n",
	})
	ws, err := NewWorkspace(ws.Root)
	if err != nil {
		t.Fatal(err)
	}

	matches, err := ws.SearchRegex(`package`, "")
	if err != nil {
		t.Fatalf("SearchRegex: %v", err)
	}
	if len(matches) != 1 || matches[0].Path != "real.go" {
		t.Fatalf("matches = %+v, want only real.go", matches)
	}
}

func TestSearchRegexInvalidPattern(t *testing.T) {
	t.Parallel()
	ws := newTestWorkspace(t)

	if _, err := ws.SearchRegex("(unclosed", ""); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("SearchRegex = %v, want ErrInvalidPattern", err)
	}
}
