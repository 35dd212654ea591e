package fsops

import (
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// alwaysExcluded are filtered from listings and searches regardless of
// ignore-file contents. Version-control metadata is never exposed.
var alwaysExcluded = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	".idea":        true,
	".vscode":      true,
}

// ignoreFilter combines the workspace .gitignore with the built-in
// exclusion set. A missing or unreadable .gitignore degrades to the
// built-ins alone.
type ignoreFilter struct {
	matcher *gitignore.GitIgnore
}

func loadIgnoreFilter(root string) *ignoreFilter {
	f := &ignoreFilter{}
	matcher, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err == nil {
		f.matcher = matcher
	}
	return f
}

// Skip reports whether a relative path should be excluded. Directories
// are matched with a trailing separator as well, so patterns like
// "logs/" behave the way git treats them.
func (f *ignoreFilter) Skip(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	for _, seg := range strings.Split(rel, "/") {
		if alwaysExcluded[seg] {
			return true
		}
	}
	if f.matcher == nil {
		return false
	}
	if f.matcher.MatchesPath(rel) {
		return true
	}
	if isDir && f.matcher.MatchesPath(rel+"/") {
		return true
	}
	return false
}
