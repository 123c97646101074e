package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, "/uploads/")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	if err := fs.Put(ctx, "abc-report.pdf", strings.NewReader("content"), 7, "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "abc-report.pdf"))
	if err != nil || string(data) != "content" {
		t.Fatalf("stored file mismatch: %q err=%v", data, err)
	}

	url, err := fs.URL(ctx, "abc-report.pdf")
	if err != nil || url != "/uploads/abc-report.pdf" {
		t.Fatalf("url = %q err=%v", url, err)
	}

	if err := fs.Remove(ctx, "abc-report.pdf"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := fs.Remove(ctx, "abc-report.pdf"); err != nil {
		t.Fatalf("removing a missing key should not error: %v", err)
	}
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	if _, err := NewFileStore("  ", ""); err == nil {
		t.Fatal("expected error for empty base path")
	}
}

func TestFileStore_KeyTraversalGuard(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, "")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := fs.Put(context.Background(), "../escape.txt", strings.NewReader("x"), 1, ""); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); err != nil {
		t.Fatalf("expected file inside base dir: %v", err)
	}
}
