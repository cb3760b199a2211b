package ctxcache

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// idWidth is the number of hex digits in a rendered DocumentID.
const idWidth = 16

// DocumentID identifies a document by its logical path. It is rendered as
// 16 lower-case hex digits, so the lexical order of rendered ids matches
// their numeric order.
type DocumentID uint64

// String returns the fixed-width hex rendering of the id.
func (id DocumentID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// MarshalText implements encoding.TextMarshaler.
func (id DocumentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *DocumentID) UnmarshalText(text []byte) error {
	parsed, err := ParseDocumentID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseDocumentID parses the 16-digit hex form produced by DocumentID.String.
func ParseDocumentID(s string) (DocumentID, error) {
	if len(s) != idWidth {
		return 0, fmt.Errorf("document id %q: want %d hex digits", s, idWidth)
	}
	if strings.ToLower(s) != s {
		return 0, fmt.Errorf("document id %q: must be lower-case hex", s)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("document id %q: %w", s, err)
	}
	return DocumentID(v), nil
}

// Assigner derives DocumentIDs from document paths.
// An Assigner holds no mutable state and is safe for concurrent use.
type Assigner struct {
	hashFunc HashFunc
}

// NewAssigner creates an Assigner. Only WithHashFunc is relevant here.
func NewAssigner(opts ...Option) *Assigner {
	o := newOptions(opts)
	return &Assigner{hashFunc: o.hashFunc}
}

var defaultAssigner = NewAssigner()

// AssignID derives the id of the document at path, relative to root,
// using the default hash.
func AssignID(root, path string) (DocumentID, error) {
	return defaultAssigner.Assign(root, path)
}

// Assign derives the id of the document at path, relative to root.
// The result depends only on the relative path (with '/' separators),
// never on file content, traversal order or time.
func (a *Assigner) Assign(root, path string) (DocumentID, error) {
	logical, err := LogicalPath(root, path)
	if err != nil {
		return 0, err
	}
	return a.FromLogicalPath(logical), nil
}

// FromLogicalPath derives the id of an already-relative, slash-separated path.
func (a *Assigner) FromLogicalPath(logical string) DocumentID {
	h := a.hashFunc()
	h.Write([]byte(logical))
	return DocumentID(h.Sum64())
}

// LogicalPath returns path relative to root with '/' separators.
// It fails with ErrInvalidPath if path is root itself, lies outside root,
// or cannot be related to root at all (e.g. one absolute, one relative).
func LogicalPath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", newError(ErrInvalidPath, path, err)
	}
	if rel == "." {
		return "", newError(ErrInvalidPath, path, fmt.Errorf("path is the ingestion root"))
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", newError(ErrInvalidPath, path, fmt.Errorf("path is outside %s", root))
	}
	return filepath.ToSlash(rel), nil
}
