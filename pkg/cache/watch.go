// Copyright 2020-2022 The MGC Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package cache

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates cache entries when their backing file changes
// on disk.
type Watcher struct {
	cache   *Manager
	watcher *fsnotify.Watcher
}

// NewWatcher starts a file watcher over the cache.
func NewWatcher(ctx context.Context, cache *Manager) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{cache: cache, watcher: fsw}

	go func() {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					cache.Invalidate(event.Name)
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				cache.log.Warn().Src("cache").Msgf("watcher: %v", err)
			}
		}
	}()

	return w, nil
}

// Watch adds a file to the watch list. Watch failures are not
// fatal, the entry just never invalidates.
func (w *Watcher) Watch(path string) {
	w.watcher.Add(path) //nolint:errcheck
}
