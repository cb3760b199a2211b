package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophersatwork/ctxcache"
)

func writeTree(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

func TestDiscover_FiltersAndSorts(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, map[string]string{
		"src/docs/quickstart.md":  "# Quickstart",
		"src/docs/api.md":         "# API",
		"src/README.md":           "# Readme",
		"src/notes.txt":           "plain text",
		"src/docs/CHANGELOG.md":   "# Changes",
		"src/docs/deep/nested.md": "nested",
		"src/docs/image.png":      "binary",
		"elsewhere/outside.md":    "not under root",
	})

	sources, err := Discover(fs, "src", Options{Exclude: []string{"CHANGELOG*"}})
	require.NoError(t, err)

	var logical []string
	for _, s := range sources {
		logical = append(logical, s.Logical)
	}
	assert.Equal(t, []string{"README.md", "docs/api.md", "docs/deep/nested.md", "docs/quickstart.md"}, logical)
	assert.Equal(t, []byte("# API"), sources[1].Content)
}

func TestDiscover_CustomExtensions(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, map[string]string{
		"src/a.md":  "a",
		"src/b.txt": "b",
		"src/c.rst": "c",
	})

	sources, err := Discover(fs, "src", Options{Extensions: []string{".txt", ".rst"}})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "b.txt", sources[0].Logical)
	assert.Equal(t, "c.rst", sources[1].Logical)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(afero.NewMemMapFs(), "nope", Options{})
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
}

func TestDiscover_RootIsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, map[string]string{"file.md": "x"})

	_, err := Discover(fs, "file.md", Options{})
	require.Error(t, err)
	assert.False(t, IsNotExist(err))
}

func TestDiscover_InvalidExcludePattern(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, map[string]string{"src/a.md": "a"})

	_, err := Discover(fs, "src", Options{Exclude: []string{"["}})
	assert.Error(t, err)
}

func TestDiscover_FollowsSymlinkedFiles(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()
	root := filepath.Join(dir, "src")
	shared := filepath.Join(dir, "shared")
	writeTree(t, fs, map[string]string{
		filepath.Join(root, "local.md"):       "# Local",
		filepath.Join(shared, "linked.md"):    "# Linked",
		filepath.Join(shared, "sub", "in.md"): "# Inside linked dir",
	})
	if err := os.Symlink(filepath.Join(shared, "linked.md"), filepath.Join(root, "linked.md")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(shared, "sub"), filepath.Join(root, "sub")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing.md"), filepath.Join(root, "dangling.md")))

	sources, err := Discover(fs, root, Options{})
	require.NoError(t, err)

	var logical []string
	for _, s := range sources {
		logical = append(logical, s.Logical)
	}
	assert.Equal(t, []string{"linked.md", "local.md"}, logical)
	assert.Equal(t, "# Linked", string(sources[0].Content))
}

func TestLoad_AssignsIDsFromLogicalPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, map[string]string{
		"one/docs/api.md": "# API Reference\n\nEndpoints.",
		"two/docs/api.md": "# API Reference\n\nEndpoints.",
	})

	assigner := ctxcache.NewAssigner()
	a, err := Load(fs, "one", Options{}, assigner)
	require.NoError(t, err)
	b, err := Load(fs, "two", Options{}, assigner)
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].ID(), b[0].ID(), "same logical path under different roots")
	assert.Equal(t, "docs/api.md", a[0].Source())
	assert.Equal(t, "API Reference", a[0].Metadata()[ctxcache.TitleKey])
}

func TestLoad_RejectsInvalidUTF8(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, map[string]string{"src/bad.md": "ok \xff\xfe"})

	_, err := Load(fs, "src", Options{}, ctxcache.NewAssigner())
	require.Error(t, err)
	assert.ErrorIs(t, err, ctxcache.ErrIngest)
}

func TestMarkdownTitle(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"atx heading", "# Deployment Guide\n\nBody", "Deployment Guide"},
		{"first of many", "intro\n\n## Second\n\n# First", "Second"},
		{"setext heading", "Architecture\n============\n", "Architecture"},
		{"inline markup", "# The `build` *pipeline*", "The build pipeline"},
		{"no heading", "just text", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarkdownTitle([]byte(tt.src)))
		})
	}
}

func TestIngest_NonMarkdownHasNoTitle(t *testing.T) {
	doc, err := Ingest(Source{Logical: "notes.txt", Content: []byte("# not a heading here")}, ctxcache.NewAssigner())
	require.NoError(t, err)
	assert.Empty(t, doc.Metadata())
}
