// Package fsops implements the confinement-checked filesystem operations
// behind the agent's file capabilities. Every mutation returns a
// ChangeRecord describing how to reverse it; the change log and undo
// machinery in internal/state build on these records.
package fsops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"codesmith/internal/logging"
)

// Workspace is the sandbox root all relative paths resolve against.
type Workspace struct {
	// Root is the absolute working directory.
	Root string

	ignore *ignoreFilter
}

// NewWorkspace opens root as a workspace. Root must exist and be a
// directory; it is made absolute so confinement checks are stable.
func NewWorkspace(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}

	ws := &Workspace{Root: abs}
	ws.ignore = loadIgnoreFilter(abs)
	logging.Get(logging.CategoryFS).Debug("workspace opened", zap.String("root", abs))
	return ws, nil
}

// Resolve maps a workspace-relative path to an absolute one, rejecting
// anything that would escape the root. The check is purely lexical and
// performs no I/O: parent-traversal segments are refused outright, and
// the joined result must stay at or below Root. Absolute inputs are
// accepted only when already inside the root.
func (w *Workspace) Resolve(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		rel = "."
	}
	cleaned := filepath.Clean(rel)

	if containsParentTraversal(cleaned) {
		return "", fmt.Errorf("%w: %s", ErrConfinement, rel)
	}

	var abs string
	if filepath.IsAbs(cleaned) {
		abs = cleaned
	} else {
		abs = filepath.Join(w.Root, cleaned)
	}

	if abs != w.Root && !strings.HasPrefix(abs, w.Root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrConfinement, rel)
	}
	return abs, nil
}

// Rel converts an absolute path inside the workspace back to the
// slash-separated relative form used in records and results.
func (w *Workspace) Rel(abs string) string {
	rel, err := filepath.Rel(w.Root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

func containsParentTraversal(cleaned string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(cleaned), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
