package fs

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Digester = (*Digester)(nil)

// Digester computes artifact checksums.
type Digester struct{}

// NewDigester creates a new Digester.
func NewDigester() *Digester {
	return &Digester{}
}

// Digest streams the file at path through the named algorithm and returns
// the lower-case hex digest.
func (d *Digester) Digest(path, algorithm string) (string, error) {
	var h hash.Hash
	switch algorithm {
	case domain.AlgorithmSHA256:
		h = sha256.New()
	case domain.AlgorithmSHA512:
		h = sha512.New()
	default:
		return "", zerr.With(zerr.Wrap(domain.ErrDigestFailed, "unsupported algorithm"), "algorithm", algorithm)
	}

	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrDigestFailed, err.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	if _, err := io.Copy(h, f); err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrDigestFailed, err.Error()), "path", path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
