package ctxcache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
	"golang.org/x/mod/semver"
)

// DefaultCacheVersion is the baseline manifest version tag.
const DefaultCacheVersion = "v0"

// contentExt is the extension of content files named by DefaultFilename.
const contentExt = ".txt"

// BuildConfig selects the version tag written into a cache manifest.
type BuildConfig struct {
	// Version must be a semantic version tag with a leading "v"
	// ("v0", "v1.2", "v1.2.3-rc.1").
	Version string
}

// DefaultBuildConfig returns the baseline configuration.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{Version: DefaultCacheVersion}
}

// Validate checks the version tag against the accepted grammar.
func (c BuildConfig) Validate() error {
	if !semver.IsValid(c.Version) {
		return newError(ErrInvalidVersion, fmt.Sprintf("%q", c.Version), nil)
	}
	return nil
}

// DefaultFilename names a content file after the fixed-width id plus ".txt".
func DefaultFilename(id DocumentID) string {
	return id.String() + contentExt
}

// Builder writes batches of documents into fresh cache directories.
// A Builder holds no mutable state; distinct targets may be built concurrently.
type Builder struct {
	cfg              BuildConfig
	fs               afero.Fs
	filenameFunc     FilenameFunc
	logger           *slog.Logger
	accumulateErrors bool
}

// NewBuilder creates a Builder for the given configuration.
func NewBuilder(cfg BuildConfig, opts ...Option) *Builder {
	o := newOptions(opts)
	return &Builder{
		cfg:              cfg,
		fs:               o.fs,
		filenameFunc:     o.filenameFunc,
		logger:           o.logger,
		accumulateErrors: o.accumulateErrors,
	}
}

// Build is shorthand for NewBuilder(cfg, opts...).Build(docs, target).
func Build(cfg BuildConfig, docs []Document, target string, opts ...Option) (*Manifest, error) {
	return NewBuilder(cfg, opts...).Build(docs, target)
}

// plannedDoc is a document together with its derived content filename.
type plannedDoc struct {
	doc  Document
	file string
}

// Build writes docs into target and returns the manifest it wrote.
//
// The version tag, duplicate ids and filename collisions are all checked
// before the filesystem is touched. target must not exist; it is never
// merged into or overwritten. Filesystem failures after that point are
// returned as ErrIO and may leave a partially written directory behind.
//
// The output depends only on the set of documents and the configuration:
// two builds of the same batch, in any order, produce byte-identical trees.
func (b *Builder) Build(docs []Document, target string) (*Manifest, error) {
	target = filepath.Clean(target)

	plan, err := b.plan(docs)
	if err != nil {
		return nil, err
	}

	exists, err := afero.Exists(b.fs, target)
	if err != nil {
		return nil, ioError("check output directory", err)
	}
	if exists {
		return nil, newError(ErrOutputExists, target, nil)
	}

	if parent := filepath.Dir(target); parent != "." && parent != "" {
		if err := b.fs.MkdirAll(parent, 0o755); err != nil {
			return nil, ioError("create parent directory", err)
		}
	}
	if err := b.fs.Mkdir(target, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, newError(ErrOutputExists, target, nil)
		}
		return nil, ioError("create output directory", err)
	}

	manifest := &Manifest{
		CacheVersion:  b.cfg.Version,
		DocumentCount: len(plan),
		Documents:     make([]DocumentEntry, 0, len(plan)),
	}

	for _, p := range plan {
		if err := afero.WriteFile(b.fs, filepath.Join(target, p.file), p.doc.content, 0o644); err != nil {
			return nil, ioError("write "+p.file, err)
		}
		manifest.Documents = append(manifest.Documents, DocumentEntry{
			ID:       p.doc.id,
			File:     p.file,
			Source:   p.doc.source,
			Size:     p.doc.Size(),
			Metadata: p.doc.metadata.Clone(),
		})
	}

	data, err := EncodeManifest(manifest)
	if err != nil {
		return nil, err
	}
	if err := afero.WriteFile(b.fs, filepath.Join(target, ManifestFilename), data, 0o644); err != nil {
		return nil, ioError("write "+ManifestFilename, err)
	}

	b.logger.Debug("cache built",
		slog.String("target", target),
		slog.String("version", manifest.CacheVersion),
		slog.Int("documents", manifest.DocumentCount))

	return manifest, nil
}

// plan runs every structural check and returns the batch sorted by id with
// derived filenames. It performs no filesystem access.
func (b *Builder) plan(docs []Document) ([]plannedDoc, error) {
	var errs []error
	// fail reports whether validation should stop after recording err.
	fail := func(err error) bool {
		errs = append(errs, err)
		return !b.accumulateErrors
	}

	if err := b.cfg.Validate(); err != nil && fail(err) {
		return nil, newValidationError(errs)
	}

	sorted := slices.Clone(docs)
	slices.SortStableFunc(sorted, func(x, y Document) int {
		switch {
		case x.id < y.id:
			return -1
		case x.id > y.id:
			return 1
		}
		return 0
	})

	for i := 1; i < len(sorted); i++ {
		// Report each duplicated id once, however many times it repeats
		if sorted[i].id == sorted[i-1].id && (i == 1 || sorted[i-2].id != sorted[i].id) {
			err := newError(ErrDuplicateID, sorted[i].id.String(),
				fmt.Errorf("%s and %s", sorted[i-1].source, sorted[i].source))
			if fail(err) {
				return nil, newValidationError(errs)
			}
		}
	}

	plan := make([]plannedDoc, 0, len(sorted))
	owners := make(map[string]DocumentID, len(sorted))
	for _, doc := range sorted {
		name := b.filenameFunc(doc.id)
		if name == ManifestFilename {
			if fail(newError(ErrFilenameCollision, name, fmt.Errorf("id %s clashes with the manifest", doc.id))) {
				return nil, newValidationError(errs)
			}
			continue
		}
		if owner, taken := owners[name]; taken {
			if owner != doc.id {
				err := newError(ErrFilenameCollision, name, fmt.Errorf("ids %s and %s", owner, doc.id))
				if fail(err) {
					return nil, newValidationError(errs)
				}
			}
			continue
		}
		owners[name] = doc.id
		plan = append(plan, plannedDoc{doc: doc, file: name})
	}

	if err := newValidationError(errs); err != nil {
		return nil, err
	}
	return plan, nil
}
