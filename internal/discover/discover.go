// Package discover finds source documents under a directory tree and turns
// them into ingested ctxcache documents.
package discover

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/gophersatwork/ctxcache"
)

// Options controls which files are picked up.
type Options struct {
	// Extensions lists the accepted file extensions, including the dot.
	// Empty means ".md".
	Extensions []string
	// Exclude lists base-name globs to skip.
	Exclude []string
}

// Source is one discovered file.
type Source struct {
	Path    string // Path as found on the filesystem
	Logical string // Path relative to the root, '/'-separated
	Content []byte
}

// Discover walks root on fsys and returns every matching regular file,
// sorted by logical path. A missing root yields an error wrapping
// fs.ErrNotExist; a root that is not a directory is also an error.
func Discover(fsys afero.Fs, root string, opts Options) ([]Source, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("sources directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sources path %s is not a directory", root)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".md"}
	}

	var sources []Source
	err = afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// Symlinked files count as the file they point to. Linked
		// directories and dangling links are not followed.
		if info.Mode()&fs.ModeSymlink != 0 {
			target, statErr := fsys.Stat(path)
			if statErr != nil {
				return nil
			}
			info = target
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if !slices.Contains(exts, filepath.Ext(path)) {
			return nil
		}

		// Check exclusions (basename only)
		for _, pattern := range opts.Exclude {
			matched, err := filepath.Match(pattern, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("invalid exclude pattern %s: %w", pattern, err)
			}
			if matched {
				return nil
			}
		}

		logical, err := ctxcache.LogicalPath(root, path)
		if err != nil {
			return err
		}
		content, err := afero.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		sources = append(sources, Source{Path: path, Logical: logical, Content: content})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort for deterministic ordering
	slices.SortFunc(sources, func(a, b Source) int {
		return strings.Compare(a.Logical, b.Logical)
	})
	return sources, nil
}

// Load discovers sources and ingests them. Markdown files carry their first
// heading as ctxcache.TitleKey metadata.
func Load(fsys afero.Fs, root string, opts Options, assigner *ctxcache.Assigner) ([]ctxcache.Document, error) {
	sources, err := Discover(fsys, root, opts)
	if err != nil {
		return nil, err
	}

	docs := make([]ctxcache.Document, 0, len(sources))
	for _, src := range sources {
		doc, err := Ingest(src, assigner)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Ingest turns one discovered source into a document.
func Ingest(src Source, assigner *ctxcache.Assigner) (ctxcache.Document, error) {
	var meta ctxcache.Metadata
	if isMarkdown(src.Logical) {
		if title := MarkdownTitle(src.Content); title != "" {
			meta = ctxcache.Metadata{ctxcache.TitleKey: title}
		}
	}
	return ctxcache.Ingest(assigner.FromLogicalPath(src.Logical), src.Logical, src.Content, meta)
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// MarkdownTitle returns the text of the first heading in src, or "".
func MarkdownTitle(src []byte) string {
	root := goldmark.New().Parser().Parse(text.NewReader(src))
	if root == nil {
		return ""
	}

	var title string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title = headingText(src, h)
		return ast.WalkStop, nil
	})
	return title
}

// headingText concatenates the text segments below a heading.
func headingText(src []byte, h *ast.Heading) string {
	var buf bytes.Buffer
	_ = ast.Walk(h, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// IsNotExist reports whether err means the sources directory is missing.
func IsNotExist(err error) bool {
	return err != nil && errors.Is(err, fs.ErrNotExist)
}
