package domain

import (
	"strings"
)

const (
	// AlgorithmSHA256 is the SHA-256 digest algorithm.
	AlgorithmSHA256 = "sha256"
	// AlgorithmSHA512 is the SHA-512 digest algorithm.
	AlgorithmSHA512 = "sha512"
)

// Checksum is the expected content digest of an artifact.
type Checksum struct {
	Algorithm string
	Hex       string
}

// String returns the checksum in "algorithm:hex" form.
func (c Checksum) String() string {
	if c.Algorithm == "" {
		return ""
	}
	return c.Algorithm + ":" + c.Hex
}

// IsZero reports whether the checksum is unset.
func (c Checksum) IsZero() bool {
	return c.Algorithm == "" && c.Hex == ""
}

// NewChecksum validates a hex digest for the given algorithm.
// The hex digest is normalised to lower case.
func NewChecksum(algorithm, hexDigest string) (Checksum, error) {
	algorithm = strings.ToLower(strings.TrimSpace(algorithm))
	hexDigest = strings.ToLower(strings.TrimSpace(hexDigest))

	size := DigestLength(algorithm)
	if size == 0 || !isHexDigest(hexDigest, size) {
		return Checksum{}, ErrMalformedChecksum
	}

	return Checksum{Algorithm: algorithm, Hex: hexDigest}, nil
}

// ParseChecksum parses "sha256:<hex>", "sha512:<hex>" or a bare hex digest,
// in which case the algorithm is derived from its length.
func ParseChecksum(s string) (Checksum, error) {
	s = strings.TrimSpace(s)
	if algorithm, digest, ok := strings.Cut(s, ":"); ok {
		return NewChecksum(algorithm, digest)
	}

	switch len(s) {
	case DigestLength(AlgorithmSHA256):
		return NewChecksum(AlgorithmSHA256, s)
	case DigestLength(AlgorithmSHA512):
		return NewChecksum(AlgorithmSHA512, s)
	default:
		return Checksum{}, ErrMalformedChecksum
	}
}

// DigestLength returns the hex length of a digest for the algorithm,
// or 0 when the algorithm is not supported.
func DigestLength(algorithm string) int {
	switch algorithm {
	case AlgorithmSHA256:
		return 64
	case AlgorithmSHA512:
		return 128
	default:
		return 0
	}
}

func isHexDigest(value string, size int) bool {
	if len(value) != size {
		return false
	}
	for _, ch := range value {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}
	return true
}
