package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Placer = (*Placer)(nil)

// Placer moves built binaries into their destination atomically.
type Placer struct {
	lockDir string
}

// NewPlacer creates a Placer that keeps its lock files in lockDir.
func NewPlacer(lockDir string) *Placer {
	return &Placer{lockDir: lockDir}
}

// Place installs src at dest with mode 0755. It holds an exclusive lock on
// dest for the whole operation and returns false without writing when dest
// already holds identical bytes with the right mode. Failures are
// *domain.PlaceError.
func (p *Placer) Place(ctx context.Context, src, dest string) (bool, error) {
	unlock, err := p.lock(ctx, dest)
	if err != nil {
		return false, &domain.PlaceError{Path: dest, Err: err}
	}
	defer unlock()

	same, err := identical(src, dest)
	if err != nil {
		return false, &domain.PlaceError{Path: dest, Err: err}
	}
	if same {
		return false, nil
	}

	if err := replace(src, dest); err != nil {
		return false, &domain.PlaceError{Path: dest, Err: err}
	}
	return true, nil
}

func (p *Placer) lock(ctx context.Context, dest string) (func(), error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, zerr.Wrap(domain.ErrLockFailed, err.Error())
	}

	if err := os.MkdirAll(p.lockDir, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrLockFailed, err.Error()), "lock_dir", p.lockDir)
	}

	path := filepath.Join(p.lockDir, fmt.Sprintf("%016x.lock", xxhash.Sum64String(abs)))
	unlock, err := lockFile(ctx, path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrLockFailed, err.Error()), "lock", path)
	}
	return unlock, nil
}

// identical reports whether dest is an executable with the same content as src.
func identical(src, dest string) (bool, error) {
	destInfo, err := os.Stat(dest)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !destInfo.Mode().IsRegular() || destInfo.Mode().Perm() != domain.ExecPerm {
		return false, nil
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	if srcInfo.Size() != destInfo.Size() {
		return false, nil
	}

	srcHash, err := fileHash(src)
	if err != nil {
		return false, err
	}
	destHash, err := fileHash(dest)
	if err != nil {
		return false, err
	}
	return srcHash == destHash, nil
}

func replace(src, dest string) (err error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, domain.BinDirPerm); err != nil {
		return err
	}

	in, err := os.Open(src) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // Best effort close in defer

	tmp, err := os.CreateTemp(dir, ".keg-"+filepath.Base(dest)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, domain.ExecPerm); err != nil {
		return err
	}
	return os.Rename(tmpName, dest)
}
