// Package manifest provides the manifest loader for keg.
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// EmbeddedPrefix marks the source of manifests read from the built-in catalog.
const EmbeddedPrefix = "embedded:"

// Loader implements ports.ManifestLoader for YAML and TOML documents.
type Loader struct {
	Logger  ports.Logger
	catalog fs.FS
}

// NewLoader creates a new Loader. The catalog, when not nil, is read before
// any directory passed to Load.
func NewLoader(logger ports.Logger, catalog fs.FS) *Loader {
	return &Loader{Logger: logger, catalog: catalog}
}

// Parse decodes and validates a single manifest document. The format is
// chosen by the extension of source.
func (l *Loader) Parse(source string, data []byte) (domain.Manifest, error) {
	var doc Document
	if err := decode(source, data, &doc); err != nil {
		return domain.Manifest{}, &domain.ManifestError{Source: source, Err: err}
	}

	m, err := doc.toManifest()
	if err != nil {
		return domain.Manifest{}, &domain.ManifestError{Source: source, Err: err}
	}
	m.Source = source

	return m, nil
}

// Load reads the embedded catalog followed by every directory in dirs. A dir
// may also name a single manifest file. Missing directories are skipped with
// a warning.
func (l *Loader) Load(ctx context.Context, dirs []string) ([]domain.Manifest, error) {
	var manifests []domain.Manifest

	if l.catalog != nil {
		found, err := l.loadFS(ctx, l.catalog, EmbeddedPrefix)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, found...)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}

		info, err := os.Stat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			l.Logger.Warn(fmt.Sprintf("formula directory %s does not exist, skipping", dir))
			continue
		}
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestReadFailed, err.Error()), "path", dir)
		}

		if !info.IsDir() {
			m, err := l.loadFile(dir)
			if err != nil {
				return nil, err
			}
			manifests = append(manifests, m)
			continue
		}

		found, err := l.loadFS(ctx, os.DirFS(dir), dir+string(filepath.Separator))
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, found...)
	}

	for i := range manifests {
		manifests[i].Seq = i
	}

	return manifests, nil
}

func (l *Loader) loadFS(ctx context.Context, fsys fs.FS, prefix string) ([]domain.Manifest, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifestReadFailed, err.Error()), "path", prefix)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsManifestFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)

	manifests := make([]domain.Manifest, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestReadFailed, err.Error()), "path", prefix+name)
		}

		m, err := l.Parse(prefix+name, data)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}

	return manifests, nil
}

func (l *Loader) loadFile(file string) (domain.Manifest, error) {
	// #nosec G304 -- file is a user supplied formula path
	data, err := os.ReadFile(file)
	if err != nil {
		return domain.Manifest{}, zerr.With(zerr.Wrap(domain.ErrManifestReadFailed, err.Error()), "path", file)
	}
	return l.Parse(file, data)
}

// IsManifestFile reports whether name has a manifest document extension.
func IsManifestFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml", ".toml":
		return true
	default:
		return false
	}
}

func decode(source string, data []byte, doc *Document) error {
	ext := strings.ToLower(path.Ext(filepath.ToSlash(source)))

	switch ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(doc); err != nil {
			if errors.Is(err, io.EOF) {
				return zerr.Wrap(domain.ErrManifestParseFailed, "empty document")
			}
			return zerr.With(zerr.Wrap(domain.ErrManifestParseFailed, err.Error()), "format", "yaml")
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(doc); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return zerr.With(zerr.Wrap(domain.ErrManifestParseFailed, strict.String()), "format", "toml")
			}
			return zerr.With(zerr.Wrap(domain.ErrManifestParseFailed, err.Error()), "format", "toml")
		}
	default:
		return zerr.With(zerr.Wrap(domain.ErrUnsupportedFormat, "cannot decode "+path.Base(source)), "extension", ext)
	}

	return nil
}
