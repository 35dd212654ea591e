package fsops

import (
	"io/fs"
	"path/filepath"
)

// WalkFiles visits every regular file under the root that survives the
// ignore filter, in depth-first order. The callback receives the
// workspace-relative path; returning an error stops the walk.
func (w *Workspace) WalkFiles(fn func(rel string) error) error {
	return filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel := w.Rel(path)
		if rel == "." {
			return nil
		}
		if w.ignore.Skip(rel, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		return fn(rel)
	})
}
