package prosthesis

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads an on-disk dataset override when the file changes and
// hands the parsed result to a callback. Used to retrain the engine
// without a restart.
type Watcher struct {
	path     string
	onReload func(*Dataset)
	onError  func(error)
	watcher  *fsnotify.Watcher
}

func NewWatcher(path string, onReload func(*Dataset), onError func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		path:     path,
		onReload: onReload,
		onError:  onError,
		watcher:  fsw,
	}, nil
}

// Run blocks until ctx is cancelled. Write events are debounced because
// editors and atomic-save tools emit several events per save.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var timer *time.Timer
	reload := func() {
		dataset, err := LoadFile(w.path)
		if err != nil {
			if w.onError != nil {
				w.onError(err)
			}
			return
		}
		w.onReload(dataset)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(500*time.Millisecond, reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}
