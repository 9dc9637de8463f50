// Copyright (c) 2024-2025 BeeAI Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store implements the on-disk object store backing workspace
// files. Blobs are laid out as <root>/<chat_id>/<hash>/<filename>, where
// hash is a random 256-bit handle allocated when the write starts — it is
// NOT a digest of the contents, so writing identical bytes twice yields two
// distinct blobs. Callers must treat handles as opaque.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/beeai-labs/interpreter/utils/randutil"
)

// ErrNotFoundOnDisk is returned when no blob exists at the requested
// location. The file index may still hold a live record for it.
var ErrNotFoundOnDisk = errors.New("blob not found on disk")

// Store is an object store rooted at a single directory, partitioned by
// chat id.
type Store struct {
	config Config
}

// New creates a new Store, initializing its root directory.
func New(config Config) (*Store, error) {
	config = config.applyDefaults()
	if err := os.MkdirAll(config.RootDir, 0775); err != nil {
		return nil, fmt.Errorf("mkdir root: %s", err)
	}
	return &Store{config}, nil
}

func (s *Store) blobDir(chatID, hash string) string {
	return filepath.Join(s.config.RootDir, chatID, hash)
}

func (s *Store) blobPath(chatID, hash, filename string) string {
	return filepath.Join(s.config.RootDir, chatID, hash, filename)
}

// NewWriter allocates a fresh handle and starts a blob write under it. The
// caller streams bytes into the returned Writer and then either commits or
// aborts it. Exactly one of Commit or Abort must be called.
func (s *Store) NewWriter(chatID, filename string) (*Writer, error) {
	hash := randutil.Hex(32)
	dir := s.blobDir(chatID, hash)
	if err := os.MkdirAll(dir, 0775); err != nil {
		return nil, fmt.Errorf("mkdir blob dir: %s", err)
	}
	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0664)
	if err != nil {
		os.Remove(dir)
		return nil, fmt.Errorf("create blob file: %s", err)
	}
	return &Writer{
		store: s,
		f:     f,
		dir:   dir,
		path:  path,
		hash:  hash,
	}, nil
}

// Writer accumulates a single blob under a pre-allocated handle.
type Writer struct {
	store *Store
	f     *os.File
	dir   string
	path  string
	hash  string
	size  int64
	done  bool
}

// Write implements io.Writer.
func (w *Writer) Write(b []byte) (int, error) {
	n, err := w.f.Write(b)
	w.size += int64(n)
	return n, err
}

// Hash returns the handle allocated for this blob. Valid before Commit.
func (w *Writer) Hash() string { return w.hash }

// Size returns the number of bytes written so far.
func (w *Writer) Size() int64 { return w.size }

// Commit finishes the write. On failure the partial blob is removed as if
// the writer had been aborted.
func (w *Writer) Commit() error {
	if w.done {
		return errors.New("writer already closed")
	}
	w.done = true
	if err := w.f.Close(); err != nil {
		os.Remove(w.path)
		os.Remove(w.dir)
		return fmt.Errorf("close blob file: %s", err)
	}
	return nil
}

// Abort discards the write, removing the partial file and the handle
// directory. The chat directory is left in place. Safe to call after a
// failed Commit.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.f.Close()
	os.Remove(w.path)
	os.Remove(w.dir)
}

// NewReader opens the blob at (chatID, hash, filename). Returns
// ErrNotFoundOnDisk if the blob does not exist, along with the blob size on
// success. This path performs no quota accounting.
func (s *Store) NewReader(chatID, hash, filename string) (io.ReadCloser, int64, error) {
	f, err := os.Open(s.blobPath(chatID, hash, filename))
	if os.IsNotExist(err) {
		return nil, 0, ErrNotFoundOnDisk
	} else if err != nil {
		return nil, 0, fmt.Errorf("open blob: %s", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat blob: %s", err)
	}
	return f, fi.Size(), nil
}

// ResolveFilename returns the filename stored under (chatID, hash). Each
// handle directory holds exactly one file because handles are never reused.
func (s *Store) ResolveFilename(chatID, hash string) (string, error) {
	entries, err := os.ReadDir(s.blobDir(chatID, hash))
	if os.IsNotExist(err) {
		return "", ErrNotFoundOnDisk
	} else if err != nil {
		return "", fmt.Errorf("read blob dir: %s", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			return e.Name(), nil
		}
	}
	return "", ErrNotFoundOnDisk
}

// DeleteBlob removes the blob at (chatID, hash, filename) from disk,
// pruning the handle directory. Deleting a missing blob is not an error.
func (s *Store) DeleteBlob(chatID, hash, filename string) error {
	path := s.blobPath(chatID, hash, filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %s", err)
	}
	os.Remove(filepath.Dir(path))
	return nil
}
