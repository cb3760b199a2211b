package ctxcache

import (
	"errors"
	"strings"
	"testing"
)

func TestIngest(t *testing.T) {
	t.Run("Valid content is copied", func(t *testing.T) {
		raw := []byte("héllo wörld")
		meta := Metadata{"title": "Greeting"}

		doc, err := Ingest(7, "greeting.md", raw, meta)
		if err != nil {
			t.Fatal(err)
		}

		raw[0] = 'X'
		meta["title"] = "changed"
		if string(doc.Content()) != "héllo wörld" {
			t.Fatalf("content changed with the caller's slice: %q", doc.Content())
		}
		if doc.Metadata()["title"] != "Greeting" {
			t.Fatalf("metadata changed with the caller's map: %v", doc.Metadata())
		}

		doc.Content()[0] = 'Y'
		if string(doc.Content()) != "héllo wörld" {
			t.Fatal("Content must return a copy")
		}
		if doc.Size() != int64(len("héllo wörld")) {
			t.Fatalf("expected size %d, got %d", len("héllo wörld"), doc.Size())
		}
		if doc.ID() != 7 || doc.Source() != "greeting.md" {
			t.Fatalf("unexpected identity %s %q", doc.ID(), doc.Source())
		}
	})

	t.Run("Empty content is valid", func(t *testing.T) {
		doc, err := Ingest(1, "empty.md", nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if doc.Size() != 0 || doc.Metadata() != nil {
			t.Fatalf("unexpected document %+v", doc)
		}
	})

	t.Run("Invalid UTF-8 is rejected", func(t *testing.T) {
		_, err := Ingest(1, "bad.md", []byte("abc\xffdef"), nil)
		if !errors.Is(err, ErrIngest) {
			t.Fatalf("expected ErrIngest, got %v", err)
		}

		var e *Error
		if !errors.As(err, &e) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if e.Subject != "bad.md" {
			t.Fatalf("expected subject bad.md, got %q", e.Subject)
		}
		if !strings.Contains(err.Error(), "offset 3") {
			t.Fatalf("expected the offset in %q", err.Error())
		}
	})

	t.Run("Truncated sequence is rejected", func(t *testing.T) {
		_, err := Ingest(1, "cut.md", []byte("ok \xe2\x82"), nil)
		if !errors.Is(err, ErrIngest) {
			t.Fatalf("expected ErrIngest, got %v", err)
		}
	})
}
