package ports

// Digester computes content digests of files.
//
//go:generate go run go.uber.org/mock/mockgen -source=digester.go -destination=mocks/mock_digester.go -package=mocks
type Digester interface {
	// Digest returns the lower-case hex digest of the file at path using the
	// named algorithm (domain.AlgorithmSHA256 or domain.AlgorithmSHA512).
	Digest(path, algorithm string) (string, error)
}
