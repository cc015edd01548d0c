// Package fs provides file system adapters for digesting, unpacking, finding
// and placing installed binaries.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// vcsDirs are never searched for build products.
var vcsDirs = map[string]struct{}{
	".git": {},
	".hg":  {},
	".svn": {},
	".jj":  {},
}

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields every regular file below root in lexical order, skipping
// VCS metadata directories. Paths include root.
func (w *Walker) WalkFiles(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				if _, skip := vcsDirs[d.Name()]; skip && path != root {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() {
				return nil
			}

			if !yield(path) {
				return filepath.SkipAll
			}

			return nil
		})
	}
}
