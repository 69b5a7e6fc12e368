package blob

import (
	"context"
	"io"
	"strings"
	"testing"
)

func openTestStores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("open fs store: %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"fs":     fs,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Put(ctx, "000123/output.csv", strings.NewReader("a,b,c\n"), "text/csv"); err != nil {
				t.Fatalf("put: %v", err)
			}
			rc, contentType, err := s.Get(ctx, "000123/output.csv")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) != "a,b,c\n" {
				t.Fatalf("data = %q", data)
			}
			if contentType != "text/csv" {
				t.Fatalf("content type = %q", contentType)
			}
		})
	}
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Put(ctx, "k.csv", strings.NewReader("first"), "text/csv"); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := s.Put(ctx, "k.csv", strings.NewReader("second"), "text/csv"); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			rc, _, err := s.Get(ctx, "k.csv")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer rc.Close()
			data, _ := io.ReadAll(rc)
			if string(data) != "second" {
				t.Fatalf("data = %q", data)
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	ctx := context.Background()
	for name, s := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := s.Get(ctx, "no/such/key"); err == nil {
				t.Fatal("expected error for missing blob")
			}
		})
	}
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	fs, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("open fs store: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "/abs/path", "../escape", "a/../../escape"} {
		if err := fs.Put(ctx, key, strings.NewReader("x"), ""); err == nil {
			t.Errorf("key %q accepted", key)
		}
	}
}
