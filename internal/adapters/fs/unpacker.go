package fs

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Unpacker = (*Unpacker)(nil)

// maxEntryBytes is the upper bound on a single extracted file (500 MiB).
const maxEntryBytes = 500 << 20

const (
	tarMagicOffset = 257
	tarBlockSize   = 512
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	tarMagic  = []byte("ustar")
)

// Unpacker extracts fetched artifacts into a work directory.
type Unpacker struct{}

// NewUnpacker creates a new Unpacker.
func NewUnpacker() *Unpacker {
	return &Unpacker{}
}

// Unpack extracts artifact into dir and returns the source root. Gzip
// compressed tarballs and plain tarballs are extracted; anything else is
// treated as a bare executable and copied to dir/name. When the archive has
// a single top-level directory, that directory is the source root.
func (u *Unpacker) Unpack(ctx context.Context, artifact, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return "", extractErr(err, artifact)
	}

	f, err := os.Open(artifact) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return "", extractErr(err, artifact)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	r := bufio.NewReader(f)

	if hasPrefix(r, gzipMagic) {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return "", extractErr(err, artifact)
		}
		defer gz.Close() //nolint:errcheck // Best effort close in defer
		r = bufio.NewReader(gz)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return "", extractErr(err, artifact)
	}
	defer root.Close() //nolint:errcheck // Best effort close in defer

	if !isTar(r) {
		if err := writeFile(root, name, r, domain.ExecPerm); err != nil {
			return "", zerr.With(err, "artifact", artifact)
		}
		return dir, nil
	}

	if err := extractTar(ctx, tar.NewReader(r), root); err != nil {
		return "", zerr.With(err, "artifact", artifact)
	}

	return sourceRoot(dir)
}

func hasPrefix(r *bufio.Reader, magic []byte) bool {
	head, _ := r.Peek(len(magic))
	return bytes.Equal(head, magic)
}

func isTar(r *bufio.Reader) bool {
	block, _ := r.Peek(tarBlockSize)
	if len(block) < tarMagicOffset+len(tarMagic) {
		return false
	}
	return bytes.Equal(block[tarMagicOffset:tarMagicOffset+len(tarMagic)], tarMagic)
}

// extractTar writes every entry through root, so no entry can be created or
// followed outside it.
func extractTar(ctx context.Context, tr *tar.Reader, root *os.Root) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return zerr.Wrap(domain.ErrExtractFailed, err.Error())
		}

		target, err := localName(root, hdr.Name)
		if err != nil {
			return err
		}
		if target == "." {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := root.MkdirAll(target, domain.DirPerm); err != nil {
				return entryErr(err, hdr.Name)
			}
		case tar.TypeReg:
			if hdr.Size > maxEntryBytes {
				return zerr.With(zerr.Wrap(domain.ErrArchiveEntryTooLarge, "refusing to extract"), "entry", hdr.Name)
			}
			if err := writeFile(root, target, tr, hdr.FileInfo().Mode().Perm()|0o600); err != nil {
				return zerr.With(err, "entry", hdr.Name)
			}
		case tar.TypeSymlink:
			if err := extractSymlink(root, target, hdr); err != nil {
				return err
			}
		case tar.TypeLink:
			src, err := localName(root, hdr.Linkname)
			if err != nil {
				return err
			}
			if err := root.Link(src, target); err != nil {
				return entryErr(err, hdr.Name)
			}
		default:
			// Devices, fifos and other special files are not needed to build.
		}
	}
}

func extractSymlink(root *os.Root, target string, hdr *tar.Header) error {
	if filepath.IsAbs(hdr.Linkname) {
		return unsafePath(hdr.Name)
	}
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(hdr.Linkname))
	if !filepath.IsLocal(resolved) {
		return unsafePath(hdr.Name)
	}

	if err := mkdirParent(root, target); err != nil {
		return entryErr(err, hdr.Name)
	}
	if err := root.Symlink(hdr.Linkname, target); err != nil {
		return entryErr(err, hdr.Name)
	}
	return nil
}

// localName cleans an archive entry name into a path relative to root. Names
// that escape root lexically, or whose parent directories pass through a
// symlink already extracted, are rejected.
func localName(root *os.Root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." {
		return clean, nil
	}
	if !filepath.IsLocal(clean) {
		return "", unsafePath(name)
	}

	parts := strings.Split(filepath.Dir(clean), string(filepath.Separator))
	for i := range parts {
		parent := filepath.Join(parts[:i+1]...)
		if parent == "." {
			break
		}
		info, err := root.Lstat(parent)
		if errors.Is(err, os.ErrNotExist) {
			break
		}
		if err != nil {
			return "", entryErr(err, name)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return "", unsafePath(name)
		}
	}
	return clean, nil
}

func unsafePath(name string) error {
	return zerr.With(zerr.Wrap(domain.ErrUnsafeArchivePath, "refusing to extract"), "entry", name)
}

func entryErr(err error, name string) error {
	return zerr.With(zerr.Wrap(domain.ErrExtractFailed, err.Error()), "entry", name)
}

func writeFile(root *os.Root, target string, r io.Reader, perm os.FileMode) error {
	if err := mkdirParent(root, target); err != nil {
		return zerr.Wrap(domain.ErrExtractFailed, err.Error())
	}

	f, err := root.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return zerr.Wrap(domain.ErrExtractFailed, err.Error())
	}

	n, copyErr := io.Copy(f, io.LimitReader(r, maxEntryBytes+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		return zerr.Wrap(domain.ErrExtractFailed, copyErr.Error())
	case n > maxEntryBytes:
		return zerr.Wrap(domain.ErrArchiveEntryTooLarge, "refusing to extract")
	case closeErr != nil:
		return zerr.Wrap(domain.ErrExtractFailed, closeErr.Error())
	}
	return nil
}

func mkdirParent(root *os.Root, target string) error {
	parent := filepath.Dir(target)
	if parent == "." {
		return nil
	}
	return root.MkdirAll(parent, domain.DirPerm)
}

func sourceRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", zerr.Wrap(domain.ErrExtractFailed, err.Error())
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

func extractErr(err error, artifact string) error {
	return zerr.With(zerr.Wrap(domain.ErrExtractFailed, err.Error()), "artifact", artifact)
}
