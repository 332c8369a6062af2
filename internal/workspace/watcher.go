package workspace

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to individual files. Directories are watched
// instead of the files themselves so editors that save by renaming are seen.
type Watcher struct {
	mu                          sync.Mutex
	watchingDirs, watchingFiles map[string]struct{}

	watcher  *fsnotify.Watcher
	onChange func(path string)
}

// NewWatcher starts watching. onChange is called from the watcher's goroutine
// with the absolute path of each changed file.
func NewWatcher(onChange func(path string)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watchingDirs:  make(map[string]struct{}),
		watchingFiles: make(map[string]struct{}),
		watcher:       watcher,
		onChange:      onChange,
	}
	go w.eventLoop()

	return w, nil
}

func (w *Watcher) WatchFile(path string) error {
	fullPath, _ := filepath.Abs(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.watchingFiles[fullPath] = struct{}{}

	dir := filepath.Dir(fullPath)
	if _, ok := w.watchingDirs[dir]; ok {
		return nil
	}

	err := w.watcher.Add(dir)
	if err != nil {
		return err
	}

	w.watchingDirs[dir] = struct{}{}

	return nil
}

func (w *Watcher) isWatching(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.watchingFiles[path]
	return ok
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			fname, _ := filepath.Abs(event.Name)

			if !w.isWatching(fname) {
				continue
			}

			w.onChange(fname)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("watcher error: %s", err)
		}
	}
}
