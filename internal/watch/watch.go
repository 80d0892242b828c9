package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is the quiet period after the last event before a run.
const DefaultDebounce = 500 * time.Millisecond

// ErrNoPaths is returned by Run when there is nothing to watch.
var ErrNoPaths = errors.New("no paths to watch")

// skipDirs are never descended into when adding directories recursively.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Watcher reruns a function when watched files change.
type Watcher struct {
	paths      []string
	debounce   time.Duration
	initialRun bool
	ignore     func(path string) bool
	logger     *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce duration. Negative values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithInitialRun controls whether the function runs once before any event.
func WithInitialRun(run bool) Option {
	return func(w *Watcher) {
		w.initialRun = run
	}
}

// WithIgnore skips events for paths the predicate accepts, in addition to
// editor swap and backup files.
func WithIgnore(ignore func(path string) bool) Option {
	return func(w *Watcher) {
		w.ignore = ignore
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New creates a Watcher for the given files and directories.
// Directories are watched recursively.
func New(paths []string, opts ...Option) *Watcher {
	w := &Watcher{
		paths:      paths,
		debounce:   DefaultDebounce,
		initialRun: true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the paths and calls fn after every debounced change until ctx
// is cancelled or fn returns an error. Cancellation of ctx is not an error.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if len(w.paths) == 0 {
		return ErrNoPaths
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	for _, p := range w.paths {
		if err := w.add(fw, p); err != nil {
			return err
		}
	}

	trigger := make(chan struct{}, 1)
	if w.initialRun {
		trigger <- struct{}{}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.watchEvents(gctx, fw, trigger)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-trigger:
				if err := fn(gctx); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
			}
		}
	})
	return g.Wait()
}

func (w *Watcher) watchEvents(ctx context.Context, fw *fsnotify.Watcher, trigger chan<- struct{}) error {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("file changed", "path", event.Name, "op", event.Op.String())

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.add(fw, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-fire:
			fire = nil
			select {
			case trigger <- struct{}{}:
			default:
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") || strings.HasPrefix(base, ".#") {
		return false
	}
	if w.ignore != nil && w.ignore(event.Name) {
		return false
	}
	return true
}

// add watches path, descending into directories.
func (w *Watcher) add(fw *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	if !info.IsDir() {
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := fw.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}
