package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Walker enumerates candidate files under a source root whose extension
// is on the allow-list. Extraction is a single-pass batch job, so the
// walk is sequential and the result is sorted lexicographically by
// relative path: reruns see files in the same order, which is what
// makes interrupted runs resumable and reports reproducible.
type Walker struct {
	root       string
	extensions map[string]bool
}

// NewWalker creates a walker for the source root. Extensions are
// matched case-insensitively and must carry the leading dot.
func NewWalker(root string, extensions []string) *Walker {
	w := &Walker{
		root:       root,
		extensions: make(map[string]bool, len(extensions)),
	}
	for _, ext := range extensions {
		w.extensions[strings.ToLower(ext)] = true
	}
	return w
}

// shouldSkipDir determines if a directory should be skipped
func (w *Walker) shouldSkipDir(name string) bool {
	skipDirs := map[string]bool{
		".git":         true,
		".svn":         true,
		"node_modules": true,
		"__pycache__":  true,
		"vendor":       true,
		"tmp":          true,
		"temp":         true,
	}
	return skipDirs[name] || strings.HasPrefix(name, ".")
}

// Walk returns the relative (slash-separated) paths of all matching
// files, sorted. Unreadable entries are skipped rather than aborting
// the enumeration.
func (w *Walker) Walk() ([]string, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("source folder %s: %w", w.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source folder %s is not a directory", w.root)
	}

	var files []string
	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip entries we can't access
		}
		if d.IsDir() {
			if path != w.root && w.shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", w.root, err)
	}

	sort.Strings(files)
	return files, nil
}
