package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"DevAmp/logger"
	"DevAmp/model"
)

// Watcher appends audio files that appear in a directory. A file is handed
// over once it has seen no writes for the settle period.
type Watcher struct {
	dir    string
	settle time.Duration
	add    func([]*model.Track)
	fsw    *fsnotify.Watcher
	seen   map[string]struct{}
}

// NewWatcher watches dir. Files already present are treated as known.
func NewWatcher(dir string, add func([]*model.Track)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:    dir,
		settle: 200 * time.Millisecond,
		add:    add,
		fsw:    fsw,
		seen:   make(map[string]struct{}),
	}
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, e := range entries {
			w.seen[filepath.Join(dir, e.Name())] = struct{}{}
		}
	}
	return w, nil
}

// Run delivers new tracks until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	pending := make(map[string]time.Time)
	check := time.NewTicker(50 * time.Millisecond)
	defer check.Stop()

	logger.Info("watching music directory", logger.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if _, known := w.seen[event.Name]; !known {
					pending[event.Name] = time.Now()
				}
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(w.seen, event.Name)
				delete(pending, event.Name)
			}

		case <-check.C:
			now := time.Now()
			var ready []string
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue // still being written
				}
				ready = append(ready, path)
				delete(pending, path)
				w.seen[path] = struct{}{}
			}
			if len(ready) == 0 {
				continue
			}
			if tracks := FilterAudio(ready); len(tracks) > 0 {
				logger.Info("new audio files detected", logger.Int("count", len(tracks)))
				w.add(tracks)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("music directory watch error", logger.ErrorField(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
