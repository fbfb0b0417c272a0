package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-ingests map files below a directory as they are created or
// written. Bursts of events for one file are collapsed into a single ingest
// once the file has been quiet for the debounce interval.
type Watcher struct {
	svc      *Service
	dir      string
	debounce time.Duration
	logger   *zap.Logger
	fsw      *fsnotify.Watcher

	// OnResult, when set, receives every ingest result. It is called from the
	// watcher goroutine.
	OnResult func(Result)

	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher watches dir and all of its subdirectories.
//
// Precondition: svc and logger must be non-nil; dir must be a directory.
// Postcondition: Returns a Watcher ready to Start, or a non-nil error.
func NewWatcher(svc *Service, dir string, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("ingest: creating watcher: %w", err)
	}
	w := &Watcher{
		svc:      svc,
		dir:      dir,
		debounce: svc.cfg.Debounce,
		logger:   logger,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	if err := w.addTree(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("ingest: watching %q: %w", path, err)
		}
		return nil
	})
}

// Start processes filesystem events until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.fsw.Close()
	// Releases timer callbacks blocked on ready.
	defer w.Stop()

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()
	ready := make(chan string)

	w.logger.Info("watching for map changes",
		zap.String("dir", w.dir),
		zap.Duration("debounce", w.debounce),
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev, timers, ready)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		case path := <-ready:
			delete(timers, path)
			res := w.svc.IngestFile(ctx, path)
			if w.OnResult != nil {
				w.OnResult(res)
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, timers map[string]*time.Timer, ready chan<- string) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watching new directory failed", zap.String("dir", ev.Name), zap.Error(err))
			}
			return
		}
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !w.svc.Matches(ev.Name) {
		return
	}
	if t, ok := timers[ev.Name]; ok {
		t.Reset(w.debounce)
		return
	}
	path := ev.Name
	timers[path] = time.AfterFunc(w.debounce, func() {
		select {
		case ready <- path:
		case <-w.done:
		}
	})
}

// Stop ends Start and releases the underlying watch descriptors.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}
