/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package asset

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "novelmind/internal/log"
)

// defaultDebounce batches rapid-fire writes of the same file.
const defaultDebounce = 250 * time.Millisecond

// Watcher observes the source directories of registered assets and
// reports changed source paths through a callback. The callback runs on
// the watcher goroutine; typical use forwards to Database.MarkOutdated
// via the UI loop.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange func(sourcePath string)
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
	dirs    map[string]bool
	done    chan struct{}
	once    sync.Once
}

// NewWatcher creates a watcher delivering debounced change callbacks.
func NewWatcher(onChange func(sourcePath string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		debounce: defaultDebounce,
		onChange: onChange,
		log:      applog.WithComponent("assetwatch"),
		pending:  make(map[string]time.Time),
		dirs:     make(map[string]bool),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// WatchSources registers the parent directories of every asset source in
// the database. Directories are watched once.
func (w *Watcher) WatchSources(d *Database) {
	for _, m := range d.All() {
		w.WatchDir(filepath.Dir(m.SourcePath))
	}
}

// WatchDir adds one directory to the watch set.
func (w *Watcher) WatchDir(dir string) {
	w.mu.Lock()
	watched := w.dirs[dir]
	if !watched {
		w.dirs[dir] = true
	}
	w.mu.Unlock()
	if watched {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.log.Warn("watch dir failed", slog.String("dir", dir), slog.Any("err", err))
	}
}

// Close stops the watcher goroutine.
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.done) })
	return w.fsw.Close()
}

func (w *Watcher) run() {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending[ev.Name] = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", slog.Any("err", err))
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

// flush delivers paths whose last event is older than the debounce
// window.
func (w *Watcher) flush(now time.Time) {
	var due []string
	w.mu.Lock()
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			due = append(due, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()
	for _, path := range due {
		w.onChange(path)
	}
}
