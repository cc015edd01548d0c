package ports

import "context"

// Unpacker turns a verified artifact into a directory tree.
//
//go:generate go run go.uber.org/mock/mockgen -source=workspace.go -destination=mocks/mock_workspace.go -package=mocks
type Unpacker interface {
	// Unpack extracts the archive at artifact into dir and returns the source
	// root: dir itself, or its only top-level directory. An artifact that is
	// not an archive is copied to dir/name as an executable.
	Unpack(ctx context.Context, artifact, dir, name string) (string, error)
}

// BinaryFinder locates a built or unpacked executable.
type BinaryFinder interface {
	// Find returns the first regular file called name below any of roots.
	Find(name string, roots ...string) (string, error)
}

// Placer installs a file into its destination atomically.
type Placer interface {
	// Place copies src to dest through a temporary file in dest's directory
	// and renames it into place while holding an exclusive lock on dest.
	// It reports false when dest already had the same content and mode.
	Place(ctx context.Context, src, dest string) (bool, error)
}
