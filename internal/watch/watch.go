// Package watch re-runs projects when their entries file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce groups the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Handler is called with a project whose entries file changed.
type Handler func(ctx context.Context, project string)

// Options tunes a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *logrus.Entry
}

// Watcher watches entries files. The parent directories are watched so
// that editors replacing the file atomically are noticed too.
type Watcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]string
	handler  Handler
	debounce time.Duration
	logger   *logrus.Entry
}

// New watches files, a mapping from project id to entries file path.
func New(files map[string]string, handler Handler, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		files:    map[string]string{},
		handler:  handler,
		debounce: opts.Debounce,
		logger:   opts.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = logrus.NewEntry(logrus.New())
	}
	w.logger = w.logger.WithField("component", "watch")

	dirs := map[string]bool{}
	for project, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = project
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run dispatches changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := map[string]bool{}
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			project, ok := w.files[filepath.Clean(ev.Name)]
			if !ok {
				continue
			}
			w.logger.WithFields(logrus.Fields{"project": project, "op": ev.Op.String()}).Debug("Entries file changed")
			pending[project] = true
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Watcher error")
		case <-fire:
			fire = nil
			projects := make([]string, 0, len(pending))
			for p := range pending {
				projects = append(projects, p)
			}
			sort.Strings(projects)
			pending = map[string]bool{}
			for _, p := range projects {
				w.logger.WithField("project", p).Info("Recompiling")
				w.handler(ctx, p)
			}
		}
	}
}
