package filestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dkeye/confcore/internal/apperr"
)

func TestSave_WritesContentAddressedFile(t *testing.T) {
	s, err := New(t.TempDir(), "https://files.example.com")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	saved, err := s.Save(strings.NewReader("hello world"), "txt", 1024)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Size != int64(len("hello world")) {
		t.Fatalf("Size = %d, want %d", saved.Size, len("hello world"))
	}
	if !strings.HasSuffix(saved.Path, ".txt") {
		t.Fatalf("Path = %q, want .txt suffix", saved.Path)
	}
	if !strings.HasPrefix(saved.URL, "https://files.example.com/") {
		t.Fatalf("URL = %q, want it rooted at the configured base", saved.URL)
	}

	data, err := os.ReadFile(saved.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("content = %q, want %q", data, "hello world")
	}
}

func TestSave_IdenticalContentDedupesToSamePath(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, err := s.Save(strings.NewReader("duplicate bytes"), "bin", 1024)
	if err != nil {
		t.Fatalf("first Save: %v", err)
	}
	second, err := s.Save(strings.NewReader("duplicate bytes"), "bin", 1024)
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if first.Path != second.Path {
		t.Fatalf("paths differ for identical content: %q vs %q", first.Path, second.Path)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want exactly one deduped file", len(entries))
	}
}

func TestSave_RejectsBodyOverTheSizeLimit(t *testing.T) {
	s, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = s.Save(strings.NewReader("0123456789"), "txt", 4)
	if apperr.As(err).Kind != apperr.BadRequest {
		t.Fatalf("err = %v, want BadRequest for an oversized upload", err)
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if !strings.Contains(e.Name(), "upload-") {
			t.Fatalf("leftover non-temp file after rejected upload: %s", e.Name())
		}
	}
}

func TestSave_DoesNotLeakTempFilesOnSuccess(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Save(strings.NewReader("payload"), "dat", 1024); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
