package ctxcache

import (
	"hash"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// HashFunc defines a function that creates a new 64-bit hash instance.
type HashFunc func() hash.Hash64

// FilenameFunc derives the on-disk content filename for a document id.
type FilenameFunc func(id DocumentID) string

// Option configures an Assigner, a Builder, or a cache opened with Open.
// Options that do not apply to a given component are ignored by it.
type Option func(*options)

type options struct {
	fs               afero.Fs
	hashFunc         HashFunc
	filenameFunc     FilenameFunc
	logger           *slog.Logger
	accumulateErrors bool // If true, accumulate all structural errors; if false, fail-fast
}

func newOptions(opts []Option) *options {
	o := &options{
		fs:           afero.NewOsFs(),
		hashFunc:     defaultHashFunc,
		filenameFunc: DefaultFilename,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithFs sets the filesystem used to read and write caches.
// This is primarily useful for testing with in-memory filesystems.
//
// Example:
//
//	m, err := ctxcache.Build(cfg, docs, "cache", ctxcache.WithFs(afero.NewMemMapFs()))
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithHashFunc sets the hash used by an Assigner to derive document ids.
// The default is xxHash64.
//
// Note: Changing the hash function changes every id, so caches built with
// different hash functions are not comparable.
func WithHashFunc(hashFunc HashFunc) Option {
	return func(o *options) {
		o.hashFunc = hashFunc
	}
}

// WithFilenameFunc overrides how a Builder names content files.
// The function must be deterministic; collisions are detected and reported
// as ErrFilenameCollision.
func WithFilenameFunc(fn FilenameFunc) Option {
	return func(o *options) {
		o.filenameFunc = fn
	}
}

// WithLogger sets the logger used for debug-level build and load summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAccumulateErrors configures a Builder to report every structural
// problem in a batch (bad version tag, duplicate ids, filename collisions)
// as a single *ValidationError instead of stopping at the first one.
//
// Example:
//
//	b := ctxcache.NewBuilder(cfg, ctxcache.WithAccumulateErrors())
func WithAccumulateErrors() Option {
	return func(o *options) {
		o.accumulateErrors = true
	}
}

// defaultHashFunc returns the default hash function (xxHash64).
func defaultHashFunc() hash.Hash64 {
	return xxhash.New()
}
