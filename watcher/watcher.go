// Package watcher notifies about file changes through event signals,
// one signal per watched path. Used by the app runtime for config
// reload notification.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.tatikoma.dev/corpix/strand/errors"
	"git.tatikoma.dev/corpix/strand/event"
	"git.tatikoma.dev/corpix/strand/log"
)

type (
	Event  = fsnotify.Event
	Signal = event.Signal[Event]

	Filter func(ev *Event) bool

	watch struct {
		signal  *Signal
		filters []Filter
	}

	Watcher struct {
		mu      sync.Mutex
		notify  *fsnotify.Watcher
		watches map[string]*watch
		dirs    map[string]int
	}
)

// ModifyFilter passes only events that change file contents.
func ModifyFilter() Filter {
	return func(ev *Event) bool {
		return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
	}
}

func New() (*Watcher, error) {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	return &Watcher{
		notify:  notify,
		watches: map[string]*watch{},
		dirs:    map[string]int{},
	}, nil
}

// Watch begins watching name and returns the signal fired on its
// changes. Watching the same name twice returns the same signal.
func (w *Watcher) Watch(name string, filters ...Filter) (*Signal, error) {
	absName, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	absDir := filepath.Dir(absName)

	w.mu.Lock()
	defer w.mu.Unlock()

	if wt, ok := w.watches[absName]; ok {
		return wt.signal, nil
	}
	if w.dirs[absDir] == 0 {
		err := w.notify.Add(absDir)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to watch directory %q", absDir)
		}
	}
	w.dirs[absDir]++

	wt := &watch{
		signal:  event.NewSignal[Event](),
		filters: filters,
	}
	w.watches[absName] = wt
	return wt.signal, nil
}

// Unwatch stops watching name. The directory watch is removed with
// its last watched file.
func (w *Watcher) Unwatch(name string) error {
	absName, err := filepath.Abs(name)
	if err != nil {
		return err
	}
	absDir := filepath.Dir(absName)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watches[absName]; !ok {
		return nil
	}
	delete(w.watches, absName)

	w.dirs[absDir]--
	if w.dirs[absDir] <= 0 {
		delete(w.dirs, absDir)
		err := w.notify.Remove(absDir)
		if err != nil {
			return errors.Wrapf(err, "failed to unwatch directory %q", absDir)
		}
	}
	return nil
}

func (w *Watcher) emit(ev Event) {
	w.mu.Lock()
	wt, ok := w.watches[ev.Name]
	w.mu.Unlock()
	if !ok {
		return
	}

	for _, filter := range wt.filters {
		if !filter(&ev) {
			return
		}
	}
	wt.signal.Fire(ev)
}

// Run pumps filesystem events into the signals until ctx is done or
// the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.notify.Events:
			if !ok {
				return
			}
			w.emit(ev)
		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) Close() error {
	return w.notify.Close()
}

// Debounce wraps fn so that bursts of calls within dur collapse into
// the last one.
func Debounce(dur time.Duration, fn func(Event)) func(Event) {
	var (
		mu     sync.Mutex
		cancel context.CancelFunc
	)
	return func(ev Event) {
		mu.Lock()
		if cancel != nil {
			cancel()
		}
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		mu.Unlock()

		go func() {
			select {
			case <-ctx.Done():
			case <-time.After(dur):
				fn(ev)
			}
		}()
	}
}
