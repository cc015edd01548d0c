package fs

import (
	"os"
	"path/filepath"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.BinaryFinder = (*Finder)(nil)

// Finder locates build products by file name.
type Finder struct {
	walker *Walker
}

// NewFinder creates a new Finder.
func NewFinder(walker *Walker) *Finder {
	return &Finder{walker: walker}
}

// Find returns the first regular file called name, searching roots in order.
// Missing roots are skipped.
func (f *Finder) Find(name string, roots ...string) (string, error) {
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			continue
		}

		if !info.IsDir() {
			if filepath.Base(root) == name && info.Mode().IsRegular() {
				return root, nil
			}
			continue
		}

		for path := range f.walker.WalkFiles(root) {
			if filepath.Base(path) == name {
				return path, nil
			}
		}
	}

	err := zerr.Wrap(domain.ErrProductNotFound, "no file named "+name)
	return "", zerr.With(err, "searched", roots)
}
