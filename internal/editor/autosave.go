/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"sync"
	"time"

	applog "labelcomposer/internal/log"
	"labelcomposer/internal/storage"
)

// AutosaveDelay is how long the autosaver waits after the last mutation
// before writing. A burst of keystrokes collapses into one write.
const AutosaveDelay = 750 * time.Millisecond

// Autosaver persists the document to a DocumentStore a short delay after
// each mutation. Failed writes are logged and retried on the next mutation;
// they never surface to the editing flow.
type Autosaver struct {
	ed    *Editor
	store *storage.DocumentStore
	delay time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	unsub  func()

	wg sync.WaitGroup
}

// NewAutosaver attaches a debounced writer to the editor. Call Close to
// detach and flush.
func NewAutosaver(ed *Editor, store *storage.DocumentStore) *Autosaver {
	a := &Autosaver{ed: ed, store: store, delay: AutosaveDelay}
	a.unsub = ed.Subscribe(func(ev Event) {
		if ev.Kind == ImageResolved {
			return
		}
		a.arm()
	})
	return a
}

func (a *Autosaver) arm() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.timer != nil && a.timer.Stop() {
		a.wg.Done()
	}
	a.wg.Add(1)
	a.timer = time.AfterFunc(a.delay, func() {
		defer a.wg.Done()
		a.save()
	})
}

func (a *Autosaver) save() {
	if err := a.store.Save(a.ed.Document()); err != nil {
		applog.WithComponent("autosave").Warn("save failed", "err", err)
	}
}

// Flush writes the current state immediately, cancelling any pending timer.
func (a *Autosaver) Flush() error {
	a.mu.Lock()
	if a.timer != nil && a.timer.Stop() {
		a.wg.Done()
	}
	a.timer = nil
	a.mu.Unlock()
	return a.store.Save(a.ed.Document())
}

// Close detaches from the editor and flushes outstanding state.
func (a *Autosaver) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	if a.timer != nil && a.timer.Stop() {
		a.wg.Done()
	}
	a.timer = nil
	a.mu.Unlock()
	a.unsub()
	a.wg.Wait()
	return a.store.Save(a.ed.Document())
}
