package ctxcache

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

// ContextCache is a read-only handle on a built cache directory.
// It is never mutated after construction, so any number of goroutines may
// select against the same handle, and several handles may share a root.
type ContextCache struct {
	root     string
	manifest *Manifest
	fs       afero.Fs
}

// Open loads the manifest of the cache at root.
//
// A missing manifest is reported as ErrIO wrapping fs.ErrNotExist; malformed
// manifest bytes as ErrManifestParse. Content files are not read until a
// selection needs them.
func Open(root string, opts ...Option) (*ContextCache, error) {
	o := newOptions(opts)

	data, err := afero.ReadFile(o.fs, filepath.Join(root, ManifestFilename))
	if err != nil {
		return nil, ioError("read "+ManifestFilename, err)
	}

	manifest, err := DecodeManifest(data)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("cache opened",
		slog.String("root", root),
		slog.String("version", manifest.CacheVersion),
		slog.Int("documents", len(manifest.Documents)))

	return &ContextCache{root: root, manifest: manifest, fs: o.fs}, nil
}

// NewContextCache wraps an already-decoded manifest. Only WithFs is relevant here.
func NewContextCache(root string, manifest *Manifest, opts ...Option) *ContextCache {
	o := newOptions(opts)
	return &ContextCache{root: root, manifest: manifest, fs: o.fs}
}

// Root returns the cache directory.
func (c *ContextCache) Root() string {
	return c.root
}

// Manifest returns the manifest the handle was built from.
// Callers must not modify it.
func (c *ContextCache) Manifest() *Manifest {
	return c.manifest
}

// Version returns the cache version tag.
func (c *ContextCache) Version() string {
	return c.manifest.CacheVersion
}

// contentPath returns the path of a content file inside the cache.
func (c *ContextCache) contentPath(entry DocumentEntry) string {
	return filepath.Join(c.root, entry.File)
}

// readContent reads the content of one entry and checks it against the
// manifest. Any disagreement is a cache integrity failure.
func (c *ContextCache) readContent(entry DocumentEntry) ([]byte, error) {
	data, err := afero.ReadFile(c.fs, c.contentPath(entry))
	if err != nil {
		return nil, newError(ErrCacheIntegrity, entry.File, err)
	}
	if int64(len(data)) != entry.Size {
		return nil, newError(ErrCacheIntegrity, entry.File,
			fmt.Errorf("size %d does not match manifest size %d", len(data), entry.Size))
	}
	return data, nil
}

// checkManifest verifies the cross-field invariants the codec leaves alone.
func (c *ContextCache) checkManifest() error {
	m := c.manifest
	if m == nil {
		return newError(ErrCacheIntegrity, c.root, fmt.Errorf("no manifest"))
	}
	if m.DocumentCount != len(m.Documents) {
		return newError(ErrCacheIntegrity, c.root,
			fmt.Errorf("document_count %d but %d entries", m.DocumentCount, len(m.Documents)))
	}

	ids := make(map[DocumentID]struct{}, len(m.Documents))
	files := make(map[string]struct{}, len(m.Documents))
	for _, e := range m.Documents {
		if _, dup := ids[e.ID]; dup {
			return newError(ErrCacheIntegrity, e.ID.String(), fmt.Errorf("duplicate id in manifest"))
		}
		if _, dup := files[e.File]; dup {
			return newError(ErrCacheIntegrity, e.File, fmt.Errorf("duplicate file in manifest"))
		}
		if e.File == "" || filepath.Base(e.File) != e.File || e.File == ManifestFilename {
			return newError(ErrCacheIntegrity, e.File, fmt.Errorf("not a content filename"))
		}
		ids[e.ID] = struct{}{}
		files[e.File] = struct{}{}
	}
	return nil
}
