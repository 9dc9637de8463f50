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

// Package fileindex tracks metadata for stored files: which session a file
// belongs to, how many downloads it has left, and when it stops being
// servable. Blob bytes themselves live in the store package; the index is
// the sole authority on whether a file may still be handed out.
package fileindex

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/jmoiron/sqlx"
)

// Index errors.
var (
	// ErrNotFound is returned when no entry exists for the requested file.
	ErrNotFound = errors.New("file not found")

	// ErrExpired is returned when an entry exists but its download quota is
	// exhausted or its retention window has passed.
	ErrExpired = errors.New("file expired")
)

// FileInfo is a single file index entry. A nil RemainingDownloads means the
// quota is unlimited; a nil ExpiresAt means the entry never expires by time.
type FileInfo struct {
	Hash               string     `db:"file_hash"`
	ChatID             string     `db:"chat_id"`
	Filename           string     `db:"filename"`
	Size               int64      `db:"size"`
	RemainingDownloads *int64     `db:"remaining"`
	ExpiresAt          *time.Time `db:"expires_at"`
	CreatedAt          time.Time  `db:"created_at"`
}

// Expired returns true if the entry is no longer servable at time now.
func (f *FileInfo) Expired(now time.Time) bool {
	if f.ExpiresAt != nil && !now.Before(*f.ExpiresAt) {
		return true
	}
	if f.RemainingDownloads != nil && *f.RemainingDownloads <= 0 {
		return true
	}
	return false
}

// Index is a SQLite-backed file metadata index.
type Index struct {
	db  *sqlx.DB
	clk clock.Clock
}

// New creates a new Index on db.
func New(db *sqlx.DB, clk clock.Clock) *Index {
	return &Index{db: db, clk: clk}
}

// Register records a file under (hash, chatID, filename). Re-registering an
// existing entry overwrites its quota and expiry, which un-expires a
// previously exhausted entry.
func (i *Index) Register(info FileInfo) error {
	_, err := i.db.NamedExec(`
		INSERT INTO files (file_hash, chat_id, filename, size, remaining, expires_at)
		VALUES (:file_hash, :chat_id, :filename, :size, :remaining, :expires_at)
		ON CONFLICT (file_hash, chat_id, filename) DO UPDATE SET
			size = excluded.size,
			remaining = excluded.remaining,
			expires_at = excluded.expires_at
	`, &info)
	if err != nil {
		return fmt.Errorf("insert file: %s", err)
	}
	return nil
}

// GetInfo returns the entry for (hash, chatID, filename), regardless of
// whether it is expired.
func (i *Index) GetInfo(hash, chatID, filename string) (*FileInfo, error) {
	var info FileInfo
	err := i.db.Get(&info, `
		SELECT file_hash, chat_id, filename, size, remaining, expires_at, created_at
		FROM files
		WHERE file_hash=? AND chat_id=? AND filename=?
	`, hash, chatID, filename)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("select file: %s", err)
	}
	return &info, nil
}

// CheckAndDecrement atomically consumes one download from the entry's quota.
// Returns ErrNotFound if no entry exists, ErrExpired if the entry is out of
// downloads or past its retention window. Unlimited entries always succeed.
func (i *Index) CheckAndDecrement(hash, chatID, filename string) error {
	tx, err := i.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %s", err)
	}
	defer tx.Rollback()

	var info FileInfo
	err = tx.Get(&info, `
		SELECT file_hash, chat_id, filename, size, remaining, expires_at, created_at
		FROM files
		WHERE file_hash=? AND chat_id=? AND filename=?
	`, hash, chatID, filename)
	if err == sql.ErrNoRows {
		return ErrNotFound
	} else if err != nil {
		return fmt.Errorf("select file: %s", err)
	}

	if info.ExpiresAt != nil && !i.clk.Now().Before(*info.ExpiresAt) {
		// Time expiry also zeroes any remaining quota so the entry cannot be
		// revived by clock skew.
		if _, err := tx.Exec(`
			UPDATE files SET remaining = 0
			WHERE file_hash=? AND chat_id=? AND filename=?
		`, hash, chatID, filename); err != nil {
			return fmt.Errorf("zero quota: %s", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %s", err)
		}
		return ErrExpired
	}

	if info.RemainingDownloads != nil {
		if *info.RemainingDownloads <= 0 {
			return ErrExpired
		}
		if _, err := tx.Exec(`
			UPDATE files SET remaining = remaining - 1
			WHERE file_hash=? AND chat_id=? AND filename=?
		`, hash, chatID, filename); err != nil {
			return fmt.Errorf("decrement quota: %s", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %s", err)
	}
	return nil
}

// Expire immediately tombstones the entry by zeroing its download quota.
// The row itself stays in the index.
func (i *Index) Expire(hash, chatID, filename string) error {
	res, err := i.db.Exec(`
		UPDATE files SET remaining = 0, expires_at = ?
		WHERE file_hash=? AND chat_id=? AND filename=?
	`, i.clk.Now().UTC(), hash, chatID, filename)
	if err != nil {
		return fmt.Errorf("expire file: %s", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %s", err)
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpired returns all entries no longer servable at the current time.
func (i *Index) ListExpired() ([]FileInfo, error) {
	var infos []FileInfo
	err := i.db.Select(&infos, `
		SELECT file_hash, chat_id, filename, size, remaining, expires_at, created_at
		FROM files
		WHERE (expires_at IS NOT NULL AND expires_at <= ?) OR remaining = 0
	`, i.clk.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("select expired files: %s", err)
	}
	return infos, nil
}

// CleanupExpired tombstones every entry whose retention window has passed
// by zeroing its download quota. Rows are never deleted here; tombstones
// keep the key occupied so a stale handle cannot be re-served. Returns the
// number of entries newly tombstoned.
func (i *Index) CleanupExpired() (int64, error) {
	res, err := i.db.Exec(`
		UPDATE files SET remaining = 0
		WHERE expires_at IS NOT NULL AND expires_at <= ?
			AND (remaining IS NULL OR remaining != 0)
	`, i.clk.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("tombstone expired files: %s", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %s", err)
	}
	return n, nil
}

// PurgeExpired deletes all expired rows from the index and returns them so
// the caller can remove the backing blobs. Only the blob garbage collector
// uses this; the default expiry model keeps tombstones forever.
func (i *Index) PurgeExpired() ([]FileInfo, error) {
	tx, err := i.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %s", err)
	}
	defer tx.Rollback()

	now := i.clk.Now().UTC()

	var infos []FileInfo
	if err := tx.Select(&infos, `
		SELECT file_hash, chat_id, filename, size, remaining, expires_at, created_at
		FROM files
		WHERE (expires_at IS NOT NULL AND expires_at <= ?) OR remaining = 0
	`, now); err != nil {
		return nil, fmt.Errorf("select expired files: %s", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM files
		WHERE (expires_at IS NOT NULL AND expires_at <= ?) OR remaining = 0
	`, now); err != nil {
		return nil, fmt.Errorf("delete expired files: %s", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %s", err)
	}
	return infos, nil
}
