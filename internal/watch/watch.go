/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package watch re-runs a callback when a project's script or metadata file changes.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "goscreenwriter/internal/log"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 200 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Files are the base names inside the directory that trigger the callback.
	Files []string
	// Debounce is the quiet period after the last event before OnChange fires.
	Debounce time.Duration
	// OnChange receives the sorted base names changed during the quiet period.
	OnChange func(changed []string)
}

// Watcher watches one directory. Editors that save through rename are covered
// because the directory, not the file, is watched.
type Watcher struct {
	dir     string
	opts    Options
	fsw     *fsnotify.Watcher
	log     *slog.Logger
	mu      sync.Mutex
	runMu   sync.Mutex // held while OnChange runs
	pending map[string]struct{}
	timer   *time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// New starts watching dir. Call Run to process events.
func New(dir string, opts Options) (*Watcher, error) {
	if len(opts.Files) == 0 {
		return nil, errors.New("watch: no files to watch")
	}
	if opts.OnChange == nil {
		return nil, errors.New("watch: OnChange is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{
		dir:     dir,
		opts:    opts,
		fsw:     fsw,
		log:     applog.WithComponent("watch").With(slog.String("dir", dir)),
		pending: map[string]struct{}{},
	}, nil
}

// Run blocks until ctx is cancelled or the underlying watcher fails, then closes it.
// A pending debounced callback is dropped on cancel; one already running is awaited.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.mu.Lock()
		w.closed = true
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		_ = w.fsw.Close()
		w.wg.Wait()
	}()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.log.Debug("fsnotify event", slog.String("name", ev.Name), slog.String("op", ev.Op.String()))
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if base := filepath.Base(ev.Name); w.tracked(base) {
				w.schedule(base)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", slog.Any("err", err))
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) tracked(base string) bool {
	for _, f := range w.opts.Files {
		if f == base {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule(base string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[base] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.fire)
}

// fire runs OnChange for everything pending. Callbacks never overlap: a timer
// that fires during a run waits, then picks up whatever accumulated meanwhile.
func (w *Watcher) fire() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	w.runMu.Lock()
	defer w.runMu.Unlock()

	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(w.pending))
	for name := range w.pending {
		changed = append(changed, name)
	}
	w.pending = map[string]struct{}{}
	w.mu.Unlock()

	sort.Strings(changed)
	w.log.Info("project changed", slog.Any("files", changed))
	w.opts.OnChange(changed)
}
