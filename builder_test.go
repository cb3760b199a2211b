package ctxcache

import (
	"errors"
	"hash"
	"slices"
	"testing"

	"github.com/spf13/afero"
)

func TestBuild(t *testing.T) {
	t.Run("Writes content files and manifest", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		docs := fixtureDocs(t)

		m, err := Build(DefaultBuildConfig(), docs, "out/cache", WithFs(memFs))
		if err != nil {
			t.Fatal(err)
		}

		if m.CacheVersion != DefaultCacheVersion || m.DocumentCount != len(docs) || len(m.Documents) != len(docs) {
			t.Fatalf("unexpected manifest %+v", m)
		}
		if !slices.IsSortedFunc(m.Documents, func(a, b DocumentEntry) int { return compareIDs(a.ID, b.ID) }) {
			t.Fatal("manifest entries must be in ascending id order")
		}

		tree := readTree(t, memFs, "out/cache")
		if len(tree) != len(docs)+1 {
			t.Fatalf("expected %d files, got %d: %v", len(docs)+1, len(tree), tree)
		}
		for _, doc := range docs {
			name := DefaultFilename(doc.ID())
			if tree[name] != string(doc.Content()) {
				t.Fatalf("content of %s: expected %q, got %q", name, doc.Content(), tree[name])
			}
		}

		encoded, err := EncodeManifest(m)
		if err != nil {
			t.Fatal(err)
		}
		if tree[ManifestFilename] != string(encoded) {
			t.Fatal("manifest on disk differs from the returned manifest")
		}
	})

	t.Run("Deterministic regardless of input order", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		docs := fixtureDocs(t)
		reversed := slices.Clone(docs)
		slices.Reverse(reversed)

		if _, err := Build(DefaultBuildConfig(), docs, "a", WithFs(memFs)); err != nil {
			t.Fatal(err)
		}
		if _, err := Build(DefaultBuildConfig(), reversed, "b", WithFs(memFs)); err != nil {
			t.Fatal(err)
		}

		a, b := readTree(t, memFs, "a"), readTree(t, memFs, "b")
		if len(a) != len(b) {
			t.Fatalf("trees differ in size: %d vs %d", len(a), len(b))
		}
		for name, content := range a {
			if b[name] != content {
				t.Fatalf("file %s differs between builds", name)
			}
		}
	})

	t.Run("Metadata reaches the manifest", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		doc := newDoc(t, "guide.md", "# Guide", Metadata{TitleKey: "Guide"})

		m, err := Build(DefaultBuildConfig(), []Document{doc}, "cache", WithFs(memFs))
		if err != nil {
			t.Fatal(err)
		}
		if m.Documents[0].Metadata[TitleKey] != "Guide" || m.Documents[0].Source != "guide.md" || m.Documents[0].Size != 7 {
			t.Fatalf("unexpected entry %+v", m.Documents[0])
		}
	})

	t.Run("Trailing separator on the target", func(t *testing.T) {
		memFs := afero.NewMemMapFs()

		m, err := Build(DefaultBuildConfig(), fixtureDocs(t), "out/", WithFs(memFs))
		if err != nil {
			t.Fatalf("expected a fresh target to build, got %v", err)
		}
		tree := readTree(t, memFs, "out")
		if len(tree) != m.DocumentCount+1 {
			t.Fatalf("expected %d files under out, got %v", m.DocumentCount+1, tree)
		}

		_, err = Build(DefaultBuildConfig(), fixtureDocs(t), "out/", WithFs(memFs))
		if !errors.Is(err, ErrOutputExists) {
			t.Fatalf("expected ErrOutputExists on the second build, got %v", err)
		}
	})

	t.Run("Empty batch", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		m, err := Build(DefaultBuildConfig(), nil, "cache", WithFs(memFs))
		if err != nil {
			t.Fatal(err)
		}
		if m.DocumentCount != 0 {
			t.Fatalf("expected no documents, got %d", m.DocumentCount)
		}
		tree := readTree(t, memFs, "cache")
		if len(tree) != 1 {
			t.Fatalf("expected only the manifest, got %v", tree)
		}
	})
}

func TestBuild_Rejections(t *testing.T) {
	t.Run("Existing output", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		if err := memFs.MkdirAll("cache", 0o755); err != nil {
			t.Fatal(err)
		}
		if err := afero.WriteFile(memFs, "cache/keep.txt", []byte("keep"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := Build(DefaultBuildConfig(), fixtureDocs(t), "cache", WithFs(memFs))
		if !errors.Is(err, ErrOutputExists) {
			t.Fatalf("expected ErrOutputExists, got %v", err)
		}
		tree := readTree(t, memFs, "cache")
		if len(tree) != 1 || tree["keep.txt"] != "keep" {
			t.Fatalf("existing directory was modified: %v", tree)
		}
	})

	t.Run("Duplicate id leaves no output", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		a := newDoc(t, "a.md", "first", nil)
		b, err := Ingest(a.ID(), "copy-of-a.md", []byte("second"), nil)
		if err != nil {
			t.Fatal(err)
		}

		_, err = Build(DefaultBuildConfig(), []Document{a, newDoc(t, "c.md", "c", nil), b}, "cache", WithFs(memFs))
		if !errors.Is(err, ErrDuplicateID) {
			t.Fatalf("expected ErrDuplicateID, got %v", err)
		}
		var e *Error
		if !errors.As(err, &e) || e.Subject != a.ID().String() {
			t.Fatalf("expected the duplicated id as subject, got %v", err)
		}
		assertNotExists(t, memFs, "cache")
	})

	t.Run("Hash collision surfaces as duplicate id", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		assigner := NewAssigner(WithHashFunc(func() hash.Hash64 { return &constHash{sum: 9} }))

		var docs []Document
		for _, p := range []string{"x.md", "y.md"} {
			doc, err := Ingest(assigner.FromLogicalPath(p), p, []byte(p), nil)
			if err != nil {
				t.Fatal(err)
			}
			docs = append(docs, doc)
		}

		_, err := Build(DefaultBuildConfig(), docs, "cache", WithFs(memFs))
		if !errors.Is(err, ErrDuplicateID) {
			t.Fatalf("expected ErrDuplicateID, got %v", err)
		}
		assertNotExists(t, memFs, "cache")
	})

	t.Run("Filename collision", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		sameName := func(DocumentID) string { return "same.txt" }

		_, err := Build(DefaultBuildConfig(), fixtureDocs(t), "cache", WithFs(memFs), WithFilenameFunc(sameName))
		if !errors.Is(err, ErrFilenameCollision) {
			t.Fatalf("expected ErrFilenameCollision, got %v", err)
		}
		assertNotExists(t, memFs, "cache")
	})

	t.Run("Filename clashing with the manifest", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		manifestName := func(DocumentID) string { return ManifestFilename }

		_, err := Build(DefaultBuildConfig(), fixtureDocs(t)[:1], "cache", WithFs(memFs), WithFilenameFunc(manifestName))
		if !errors.Is(err, ErrFilenameCollision) {
			t.Fatalf("expected ErrFilenameCollision, got %v", err)
		}
	})

	t.Run("Invalid version", func(t *testing.T) {
		for _, v := range []string{"", "1.0.0", "v", "v1.0.0.0", "latest"} {
			memFs := afero.NewMemMapFs()
			_, err := Build(BuildConfig{Version: v}, fixtureDocs(t), "cache", WithFs(memFs))
			if !errors.Is(err, ErrInvalidVersion) {
				t.Fatalf("version %q: expected ErrInvalidVersion, got %v", v, err)
			}
			assertNotExists(t, memFs, "cache")
		}
	})

	t.Run("Accumulated errors", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		a := newDoc(t, "a.md", "a", nil)
		dup, err := Ingest(a.ID(), "again.md", []byte("a"), nil)
		if err != nil {
			t.Fatal(err)
		}

		_, err = Build(BuildConfig{Version: "nope"}, []Document{a, dup}, "cache", WithFs(memFs), WithAccumulateErrors())

		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected *ValidationError, got %T: %v", err, err)
		}
		if len(ve.Errors) != 2 {
			t.Fatalf("expected 2 errors, got %d: %v", len(ve.Errors), ve)
		}
		if !errors.Is(err, ErrInvalidVersion) || !errors.Is(err, ErrDuplicateID) {
			t.Fatalf("expected both kinds in %v", err)
		}
		assertNotExists(t, memFs, "cache")
	})
}

func TestBuildConfig_Validate(t *testing.T) {
	for _, v := range []string{"v0", "v1", "v1.2", "v1.2.3", "v2.0.0-rc.1"} {
		if err := (BuildConfig{Version: v}).Validate(); err != nil {
			t.Errorf("version %q: unexpected error %v", v, err)
		}
	}
}

func compareIDs(a, b DocumentID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func assertNotExists(t *testing.T, memFs afero.Fs, path string) {
	t.Helper()
	ok, err := afero.Exists(memFs, path)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("expected %s not to exist", path)
	}
}
