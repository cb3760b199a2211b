package ctxcache

import (
	"fmt"
	"maps"
	"unicode/utf8"
)

// Metadata is caller-supplied key/value data attached to a document.
// The core passes it through into the manifest and never interprets it,
// except that scorers may read it.
type Metadata map[string]string

// Clone returns a copy of m. A nil or empty Metadata clones to nil.
func (m Metadata) Clone() Metadata {
	if len(m) == 0 {
		return nil
	}
	return maps.Clone(m)
}

// Document is an ingested text document. Users should not construct this
// directly, use Ingest instead.
type Document struct {
	id       DocumentID
	source   string
	content  []byte
	metadata Metadata
}

// Ingest validates raw content and wraps it into an immutable Document.
// Content must be valid UTF-8; anything else fails with ErrIngest rather
// than being truncated or replaced. The raw slice and metadata are copied.
func Ingest(id DocumentID, source string, raw []byte, metadata Metadata) (Document, error) {
	if !utf8.Valid(raw) {
		return Document{}, newError(ErrIngest, source,
			fmt.Errorf("content is not valid UTF-8 at byte offset %d", invalidUTF8Offset(raw)))
	}

	return Document{
		id:       id,
		source:   source,
		content:  append([]byte(nil), raw...),
		metadata: metadata.Clone(),
	}, nil
}

// ID returns the document id.
func (d Document) ID() DocumentID {
	return d.id
}

// Source returns the display path the document was ingested from.
func (d Document) Source() string {
	return d.source
}

// Content returns a copy of the document content.
func (d Document) Content() []byte {
	return append([]byte(nil), d.content...)
}

// Size returns the content length in bytes.
func (d Document) Size() int64 {
	return int64(len(d.content))
}

// Metadata returns a copy of the document metadata.
func (d Document) Metadata() Metadata {
	return d.metadata.Clone()
}

// invalidUTF8Offset returns the offset of the first invalid UTF-8 sequence in b.
func invalidUTF8Offset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}
