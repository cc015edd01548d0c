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

func TestDigester_Digest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact")
	require.NoError(t, os.WriteFile(path, []byte("abc"), domain.FilePerm))

	d := fs.NewDigester()

	tests := []struct {
		algorithm string
		want      string
	}{
		{
			algorithm: domain.AlgorithmSHA256,
			want:      "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
		{
			algorithm: domain.AlgorithmSHA512,
			want: "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a" +
				"2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			got, err := d.Digest(path, tt.algorithm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDigester_Digest_Errors(t *testing.T) {
	d := fs.NewDigester()

	_, err := d.Digest(filepath.Join(t.TempDir(), "missing"), domain.AlgorithmSHA256)
	assert.ErrorIs(t, err, domain.ErrDigestFailed)

	_, err = d.Digest(filepath.Join(t.TempDir(), "missing"), "md5")
	assert.ErrorIs(t, err, domain.ErrDigestFailed)
}
