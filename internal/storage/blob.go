/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "labelcomposer/internal/log"
	"labelcomposer/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// ImagesDBFileName is the image blob database inside the state directory.
	ImagesDBFileName = "plc-images-db.sqlite"

	// blobSchemaVersion tracks the images database schema.
	blobSchemaVersion = 1
)

// ErrStorageUnavailable reports that the durable blob facility cannot be
// opened or written. Callers fall back to inlining payloads.
var ErrStorageUnavailable = errors.New("blob storage unavailable")

// BlobStore is a durable key to binary-payload mapping backed by an embedded
// SQLite database. Writes are committed before Put returns; reads within the
// same session observe completed writes.
type BlobStore struct {
	db   *sql.DB
	path string
}

// OpenBlobStore opens (creating if needed) the images database under dir,
// enables WAL mode and ensures the schema exists. Failures wrap
// ErrStorageUnavailable so callers can engage the inline fallback.
func OpenBlobStore(dir string) (*BlobStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "blob_open").With(
		slog.String("dir", dir),
	)
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: state dir is required", ErrStorageUnavailable)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.Error("create state dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("%w: create state dir: %v", ErrStorageUnavailable, err)
	}

	path := filepath.Join(dir, ImagesDBFileName)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrStorageUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("%w: enable WAL: %v", ErrStorageUnavailable, err)
	}
	if err := ensureBlobSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	l.Debug("images db ready", slog.String("path", path))
	return &BlobStore{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (s *BlobStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *BlobStore) Path() string { return s.path }

func ensureBlobSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS images (
			id         TEXT PRIMARY KEY,
			blob       BLOB NOT NULL,
			created_at TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure blob schema: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, blobSchemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// MintBlobID returns a fresh opaque blob id: <unix-ms>-<random hex>. The
// primary key on images backstops the vanishing chance of a collision.
func MintBlobID() string {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf[:]))
}

// Put stores the payload and returns its newly minted id. The write is
// durable before Put returns.
func (s *BlobStore) Put(ctx context.Context, data []byte) (string, error) {
	if s == nil || s.db == nil {
		return "", ErrStorageUnavailable
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	// Re-mint on the (vanishing) chance of an id collision.
	for attempt := 0; attempt < 3; attempt++ {
		id := MintBlobID()
		_, err := s.db.ExecContext(ctx, `INSERT INTO images(id, blob, created_at) VALUES(?,?,?)`, id, data, now)
		if err == nil {
			return id, nil
		}
		if !isUniqueViolation(err) {
			return "", fmt.Errorf("%w: put blob: %v", ErrStorageUnavailable, err)
		}
	}
	return "", fmt.Errorf("%w: could not mint unique blob id", ErrStorageUnavailable)
}

// Get returns the stored payload or nil when no entry exists. Absent is not
// an error.
func (s *BlobStore) Get(ctx context.Context, id string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, ErrStorageUnavailable
	}
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM images WHERE id=?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", id, err)
	}
	return blob, nil
}

// Delete removes the entry if present. Deleting a missing id succeeds.
func (s *BlobStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return ErrStorageUnavailable
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored blobs.
func (s *BlobStore) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrStorageUnavailable
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count blobs: %w", err)
	}
	return n, nil
}

// IDs returns all stored blob ids, oldest first.
func (s *BlobStore) IDs(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, ErrStorageUnavailable
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM images ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list blob ids: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
