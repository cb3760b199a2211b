package ctxcache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ManifestFilename is the fixed name of the manifest inside a cache directory.
const ManifestFilename = "manifest.json"

// Manifest describes a built cache: its version tag and one entry per
// document, ordered by ascending DocumentID.
type Manifest struct {
	CacheVersion  string          `json:"cache_version"`
	DocumentCount int             `json:"document_count"`
	Documents     []DocumentEntry `json:"documents"`
}

// DocumentEntry describes one document in a Manifest.
type DocumentEntry struct {
	ID       DocumentID `json:"id"`
	File     string     `json:"file"`   // Content filename, relative to the cache root
	Source   string     `json:"source"` // Display path the document was ingested from
	Size     int64      `json:"size"`   // Content length in bytes
	Metadata Metadata   `json:"metadata,omitempty"`
}

// EncodeManifest serializes m canonically: fixed key order, two-space
// indentation and a trailing newline. Encoding the same value twice yields
// identical bytes.
func EncodeManifest(m *Manifest) ([]byte, error) {
	if m == nil {
		return nil, newError(ErrSerialization, "", errors.New("nil manifest"))
	}

	// Encode an empty batch as [] rather than null
	out := *m
	if out.Documents == nil {
		out.Documents = []DocumentEntry{}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, newError(ErrSerialization, "", err)
	}
	return append(data, '\n'), nil
}

// rawManifest mirrors Manifest with pointer fields so missing keys can be told
// apart from zero values.
type rawManifest struct {
	CacheVersion  *string     `json:"cache_version"`
	DocumentCount *int        `json:"document_count"`
	Documents     *[]rawEntry `json:"documents"`
}

type rawEntry struct {
	ID       *DocumentID `json:"id"`
	File     *string     `json:"file"`
	Source   *string     `json:"source"`
	Size     *int64      `json:"size"`
	Metadata Metadata    `json:"metadata"`
}

// DecodeManifest parses manifest bytes. It fails with ErrManifestParse on
// malformed JSON, trailing data, or missing required fields. It does not
// check cross-field invariants such as id uniqueness or the document count.
func DecodeManifest(data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var raw rawManifest
	if err := dec.Decode(&raw); err != nil {
		return nil, newError(ErrManifestParse, "", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, newError(ErrManifestParse, "", errors.New("unexpected data after manifest"))
	}

	switch {
	case raw.CacheVersion == nil:
		return nil, missingField("cache_version")
	case raw.DocumentCount == nil:
		return nil, missingField("document_count")
	case raw.Documents == nil:
		return nil, missingField("documents")
	case *raw.DocumentCount < 0:
		return nil, newError(ErrManifestParse, "", fmt.Errorf("negative document_count %d", *raw.DocumentCount))
	}

	m := &Manifest{
		CacheVersion:  *raw.CacheVersion,
		DocumentCount: *raw.DocumentCount,
		Documents:     make([]DocumentEntry, 0, len(*raw.Documents)),
	}
	for i, e := range *raw.Documents {
		switch {
		case e.ID == nil:
			return nil, missingField(fmt.Sprintf("documents[%d].id", i))
		case e.File == nil:
			return nil, missingField(fmt.Sprintf("documents[%d].file", i))
		case e.Source == nil:
			return nil, missingField(fmt.Sprintf("documents[%d].source", i))
		case e.Size == nil:
			return nil, missingField(fmt.Sprintf("documents[%d].size", i))
		case *e.Size < 0:
			return nil, newError(ErrManifestParse, "", fmt.Errorf("documents[%d]: negative size %d", i, *e.Size))
		}
		m.Documents = append(m.Documents, DocumentEntry{
			ID:       *e.ID,
			File:     *e.File,
			Source:   *e.Source,
			Size:     *e.Size,
			Metadata: e.Metadata.Clone(),
		})
	}

	return m, nil
}

func missingField(name string) error {
	return newError(ErrManifestParse, "", fmt.Errorf("missing required field %q", name))
}
