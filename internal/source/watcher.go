package source

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reports when a loaded source file disappears from disk.
type Watcher struct {
	watcher   *fsnotify.Watcher
	path      string
	onGone    func(path string)
	closeOnce sync.Once
	done      chan struct{}
}

// Watch starts watching path. onGone runs at most once, on the watcher's own
// goroutine, after the file is removed or renamed.
func Watch(path string, onGone func(path string)) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watched path: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch source directory: %w", err)
	}

	w := &Watcher{
		watcher: fsWatcher,
		path:    filepath.Clean(absPath),
		onGone:  onGone,
		done:    make(chan struct{}),
	}

	go w.run()

	return w, nil
}

func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher. It does not wait for a running onGone callback.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})

	return err
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			select {
			case <-w.done:
				return
			default:
			}

			if w.onGone != nil {
				w.onGone(w.path)
			}
			return
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logrus.WithFields(logrus.Fields{
				"function": "Watcher.run",
				"path":     w.path,
				"error":    err.Error(),
			}).Warn("Source file watcher error")
		}
	}
}
