// Package filestore is the local content-addressed file sink backing chat
// uploads and recording uploads (SPEC_FULL supplemented features 3 and 4).
// No object-storage SDK appears anywhere in the pack for this concern, so
// this is a documented stdlib os/io boundary rather than a dropped
// dependency — see DESIGN.md.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dkeye/confcore/internal/apperr"
)

// Store writes uploaded files under baseDir, named by the sha256 of their
// content so identical uploads dedupe for free and no path traversal from a
// client-supplied filename is possible.
type Store struct {
	baseDir string
	baseURL string
}

func New(baseDir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{baseDir: baseDir, baseURL: baseURL}, nil
}

// Saved describes a stored file's addressable location.
type Saved struct {
	URL  string
	Path string
	Size int64
}

// Save streams r to disk while hashing it, enforcing maxBytes via a limited
// reader so a client can't exhaust disk with an oversized body.
func (s *Store) Save(r io.Reader, ext string, maxBytes int64) (*Saved, error) {
	tmp, err := os.CreateTemp(s.baseDir, "upload-*.tmp")
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	h := sha256.New()
	limited := io.LimitReader(r, maxBytes+1)
	n, err := io.Copy(io.MultiWriter(tmp, h), limited)
	closeErr := tmp.Close()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "write upload", err)
	}
	if closeErr != nil {
		return nil, apperr.Wrap(apperr.Internal, "close upload", closeErr)
	}
	if n > maxBytes {
		return nil, apperr.New(apperr.BadRequest, "file exceeds size limit")
	}

	sum := hex.EncodeToString(h.Sum(nil))
	name := sum
	if ext != "" {
		name += "." + ext
	}
	finalPath := filepath.Join(s.baseDir, name)
	if _, err := os.Stat(finalPath); err == nil {
		// content-addressed dedupe: identical bytes already stored.
		return &Saved{URL: s.baseURL + "/" + name, Path: finalPath, Size: n}, nil
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "finalize upload", err)
	}
	return &Saved{URL: s.baseURL + "/" + name, Path: finalPath, Size: n}, nil
}
