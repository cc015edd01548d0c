package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/adapters/fs"
	"go.trai.ch/keg/internal/core/domain"
)

func TestFinder_Find(t *testing.T) {
	stage := t.TempDir()
	src := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(src, "target", "release"), domain.DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(src, "target", "release", "jg"), []byte("src"), domain.ExecPerm))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "jgdir"), domain.DirPerm))

	finder := fs.NewFinder(fs.NewWalker())

	t.Run("falls through to later roots", func(t *testing.T) {
		got, err := finder.Find("jg", filepath.Join(stage, "bin"), stage, src)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(src, "target", "release", "jg"), got)
	})

	t.Run("earlier roots win", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(stage, "bin"), domain.DirPerm))
		require.NoError(t, os.WriteFile(filepath.Join(stage, "bin", "jg"), []byte("stage"), domain.ExecPerm))

		got, err := finder.Find("jg", filepath.Join(stage, "bin"), stage, src)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(stage, "bin", "jg"), got)
	})

	t.Run("root may be the file", func(t *testing.T) {
		path := filepath.Join(src, "target", "release", "jg")
		got, err := finder.Find("jg", path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := finder.Find("jgrep", stage, src)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}
