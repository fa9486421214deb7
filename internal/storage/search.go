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
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"labelcomposer/internal/domain"
	"labelcomposer/internal/htmltext"
)

// IndexDBFileName is the derived full-text index over label titles. The
// index is rebuilt from the document on demand; it is never the source of
// truth and can be deleted freely.
const IndexDBFileName = "plc-index.sqlite"

// SearchHit is one matching label.
type SearchHit struct {
	LabelID  string
	Position int // index within the document's label order
	Snippet  string
}

func openIndex(dir string) (*sql.DB, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state dir is required")
	}
	path := filepath.Join(dir, IndexDBFileName)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(context.Background(), `CREATE VIRTUAL TABLE IF NOT EXISTS labels_fts USING fts5(
		title,
		label_id UNINDEXED,
		position UNINDEXED,
		tokenize = 'unicode61'
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure fts schema: %w", err)
	}
	return db, nil
}

// RebuildSearchIndex replaces the index content with the document's current
// label titles (plain text, tags stripped).
func RebuildSearchIndex(ctx context.Context, dir string, doc domain.Document) error {
	db, err := openIndex(dir)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM labels_fts;`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear index: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO labels_fts(title, label_id, position) VALUES(?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = ins.Close() }()
	for i, l := range doc.Labels {
		text := htmltext.Strip(l.Title)
		if text == "" {
			continue
		}
		if _, err := ins.ExecContext(ctx, text, l.ID, i); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert label %s: %w", l.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SearchLabels runs an FTS5 match over label titles. Query uses FTS5 syntax:
// simple terms, "quoted phrases", AND/OR/NOT.
func SearchLabels(ctx context.Context, dir string, query string) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("empty query")
	}
	db, err := openIndex(dir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, `SELECT label_id, position, snippet(labels_fts, 0, '[', ']', '…', 10)
		FROM labels_fts WHERE labels_fts MATCH ? ORDER BY position ASC`, query)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.LabelID, &h.Position, &h.Snippet); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
