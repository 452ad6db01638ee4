package librarian

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/librarian/pkg/logger"
	"github.com/jingkaihe/librarian/pkg/skills"
	"github.com/jingkaihe/librarian/pkg/telemetry"
)

// ReloadFunc is called after every reload attempt triggered by the watcher
type ReloadFunc func(reg *skills.Registry, err error)

// Watcher reloads a Librarian from its source whenever catalog files change.
// Bursts of events are collapsed into a single reload after the debounce
// delay. A failed reload is retried a few times since editors often leave a
// file half written for a moment.
type Watcher struct {
	lib        *Librarian
	src        skills.Source
	paths      []string
	debounce   time.Duration
	attempts   uint
	retryDelay time.Duration
	onReload   ReloadFunc
}

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithRetry sets how many times a reload is attempted and the pause between
// attempts. Attempts below one are treated as one.
func WithRetry(attempts uint, delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.attempts = max(attempts, 1)
		w.retryDelay = delay
	}
}

// WithReloadFunc registers a callback for reload results
func WithReloadFunc(fn ReloadFunc) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a watcher over paths. Directories are watched
// recursively; missing paths are ignored.
func NewWatcher(lib *Librarian, src skills.Source, paths []string, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		lib:        lib,
		src:        src,
		paths:      paths,
		debounce:   500 * time.Millisecond,
		attempts:   3,
		retryDelay: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer fw.Close()

	for _, path := range w.paths {
		if err := addRecursive(fw, path); err != nil {
			return err
		}
	}
	logger.G(ctx).WithField("paths", w.paths).Debug("watching skill catalog")

	changes := make(chan string)
	go debounceChanges(ctx, changes, w.debounce, func() {
		w.reload(ctx)
	})

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Chmod == event.Op {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(fw, event.Name); err != nil {
						logger.G(ctx).WithError(err).WithField("dir", event.Name).Warn("failed to watch new directory")
					}
				}
			}
			logger.G(ctx).WithField("file", event.Name).WithField("operation", event.Op.String()).Debug("catalog change detected")
			select {
			case changes <- event.Name:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Error("error watching skill catalog")
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	telemetry.WithSpanFunc(ctx, "librarian.watch.reload", func(ctx context.Context) {
		var reg *skills.Registry
		err := retry.Do(
			func() error {
				var err error
				reg, err = w.lib.Load(ctx, w.src)
				return err
			},
			retry.Attempts(w.attempts),
			retry.Delay(w.retryDelay),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
			retry.Context(ctx),
			retry.OnRetry(func(n uint, err error) {
				logger.G(ctx).WithError(err).WithField("attempt", n+1).Debug("catalog reload failed, retrying")
			}),
		)
		if err != nil {
			logger.G(ctx).WithError(err).Warn("catalog reload failed")
			telemetry.AddEvent(ctx, "reload.rejected", attribute.String("error", err.Error()))
		} else {
			telemetry.SetAttributes(ctx, attribute.Int("registry.skills", reg.Len()))
		}
		if w.onReload != nil {
			w.onReload(reg, err)
		}
	})
}

// debounceChanges calls fire once input has been quiet for delay. Only the
// goroutine running this function touches the timer.
func debounceChanges(ctx context.Context, input <-chan string, delay time.Duration, fire func()) {
	timer := time.NewTimer(delay)
	timer.Stop()

	for {
		select {
		case _, ok := <-input:
			if !ok {
				timer.Stop()
				return
			}
			timer.Reset(delay)
		case <-timer.C:
			fire()
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// addRecursive watches path, and every directory below it when path is a
// directory. A single file is watched through its parent directory so that
// editors replacing the file are still noticed.
func addRecursive(fw *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to stat %s", path)
	}
	if !info.IsDir() {
		return errors.Wrapf(fw.Add(filepath.Dir(path)), "failed to watch %s", path)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		return errors.Wrapf(fw.Add(p), "failed to watch %s", p)
	})
}
