package fsops

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Entry is one listing result.
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"isDirectory"`
}

// List returns the entries of a directory, excluding ignore-matched
// names, sorted directories first and lexicographically within each
// group.
func (w *Workspace) List(rel string) ([]Entry, error) {
	abs, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("list %s: %w", rel, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		entryRel := filepath.Join(w.Rel(abs), d.Name())
		if w.ignore.Skip(entryRel, d.IsDir()) {
			continue
		}
		entries = append(entries, Entry{Name: d.Name(), IsDir: d.IsDir()})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Glob returns workspace-relative paths matching a doublestar pattern.
// Patterns are relative and must not traverse above the root.
func (w *Workspace) Glob(pattern string) ([]string, error) {
	if filepath.IsAbs(pattern) || containsParentTraversal(filepath.Clean(pattern)) {
		return nil, fmt.Errorf("%w: %s", ErrConfinement, pattern)
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPattern, pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(w.Root), filepath.ToSlash(pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}

	results := make([]string, 0, len(matches))
	for _, m := range matches {
		if w.ignore.Skip(m, false) {
			continue
		}
		results = append(results, m)
	}
	sort.Strings(results)
	return results, nil
}

// RegexMatch reports how many times a pattern matched in one file.
type RegexMatch struct {
	Path  string `json:"filePath"`
	Count int    `json:"matchCount"`
}

// SearchRegex walks the tree depth-first under rel (the root when
// empty), applying the ignore filter per entry, and returns per-file
// match counts. File content is never returned, keeping the result
// size bounded regardless of what matched.
func (w *Workspace) SearchRegex(pattern, rel string) ([]RegexMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	abs, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}

	var matches []RegexMatch
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		entryRel := w.Rel(path)
		if entryRel == "." {
			return nil
		}
		if w.ignore.Skip(entryRel, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if n := len(re.FindAllIndex(data, -1)); n > 0 {
			matches = append(matches, RegexMatch{Path: entryRel, Count: n})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", rel, err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Path < matches[j].Path })
	return matches, nil
}
