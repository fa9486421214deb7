/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"labelcomposer/internal/domain"
	applog "labelcomposer/internal/log"
)

const (
	// StateKey is the logical key of the persisted document state.
	StateKey = "plc:state:v1"

	// StateFileName is the file the state key maps to inside the state dir.
	StateFileName = "plc-state-v1.json"

	// BackupsDirName holds timestamped copies of the previous state.
	BackupsDirName = "backups"
)

// DocumentStore persists the structured document (project name, labels,
// selection) as JSON. Image payloads live in the BlobStore; labels reference
// them as idb:// uris that are persisted verbatim. Session refs never reach
// disk: the ImageRef serializer strips them.
type DocumentStore struct {
	Dir string
}

// NewDocumentStore returns a store rooted at dir. The directory is created
// lazily on first save.
func NewDocumentStore(dir string) *DocumentStore { return &DocumentStore{Dir: dir} }

// Path returns the state file path.
func (s *DocumentStore) Path() string { return filepath.Join(s.Dir, StateFileName) }

// Load returns the last persisted document. ok is false on first run or when
// neither the state file nor any backup can be parsed; the caller then boots
// the default document. Corrupt primary state silently falls back to the
// latest backup.
func (s *DocumentStore) Load() (domain.Document, bool) {
	l := applog.WithOperation(applog.WithComponent("storage"), "state_load")
	b, err := os.ReadFile(s.Path())
	if err != nil {
		if doc, ok := s.loadFromLatestBackup(); ok {
			l.Warn("state file unreadable, restored from backup", slog.Any("err", err))
			return doc, true
		}
		return domain.Document{}, false
	}
	var doc domain.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		if doc, ok := s.loadFromLatestBackup(); ok {
			l.Warn("state file corrupt, restored from backup", slog.Any("err", err))
			return doc, true
		}
		l.Warn("state file corrupt and no usable backup", slog.Any("err", err))
		return domain.Document{}, false
	}
	return doc, true
}

// Save persists the document atomically: marshal, back up the previous state
// file, write a temp file in the same directory, fsync, rename over the
// target. The next Load returns exactly what was saved.
func (s *DocumentStore) Save(doc domain.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	bdir := filepath.Join(s.Dir, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	target := s.Path()
	if _, statErr := os.Stat(target); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", StateFileName, stamp))
		if cerr := copyFile(target, bpath); cerr != nil {
			return fmt.Errorf("backup current state: %w", cerr)
		}
	}

	temp := filepath.Join(s.Dir, fmt.Sprintf(".%s.tmp-%d-%d", StateFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp state: %w", werr)
	}
	// On Windows, replace by removing the destination first.
	if _, err := os.Stat(target); err == nil {
		_ = os.Remove(target)
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace state: %w", rerr)
	}
	return nil
}

func (s *DocumentStore) loadFromLatestBackup() (domain.Document, bool) {
	bdir := filepath.Join(s.Dir, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return domain.Document{}, false
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, StateFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return domain.Document{}, false
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			continue
		}
		var doc domain.Document
		if err := json.Unmarshal(b, &doc); err != nil {
			continue
		}
		return doc, true
	}
	return domain.Document{}, false
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src to dst, overwriting dst if it exists.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// AutosaveCrashSnapshot writes the document to a timestamped file under the
// backups directory. Used by the crash handler; best effort, no backups of
// the snapshot itself.
func AutosaveCrashSnapshot(s *DocumentStore, doc domain.Document) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	bdir := filepath.Join(s.Dir, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("autosave-%s.json", stamp))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}
