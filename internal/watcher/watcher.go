// Package watcher reports settings files changed by other programs, such as
// the emulator itself or a text editor, so loaded layers can be reloaded.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"tools.zach/dev/emuconf/internal/paths"
)

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// Options configures a [Watcher].
type Options struct {
	// Dirs are watched non-recursively. Missing directories are skipped by
	// the native watcher and picked up by polling once they appear.
	Dirs []string
	// PollInterval is the rescan interval in polling mode.
	PollInterval time.Duration
	// Debounce coalesces events for one file arriving within this window.
	Debounce time.Duration
	// Polling skips fsnotify entirely.
	Polling bool
}

// IsSettingsFile reports whether name looks like an emulator settings file.
func IsSettingsFile(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), paths.IniExt) && !strings.HasPrefix(base, ".")
}

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher delivers the paths of changed settings files. Creation, writes,
// renames and removals all count as changes.
type Watcher struct {
	dirs     []string
	interval time.Duration
	debounce time.Duration

	events chan string
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	fsw     *fsnotify.Watcher
	polling atomic.Bool
}

// New starts watching. It never fails for lack of native notifications;
// it falls back to polling instead.
func New(opts Options) (*Watcher, error) {
	if len(opts.Dirs) == 0 {
		return nil, fmt.Errorf("watcher: no directories")
	}
	w := &Watcher{
		dirs:     slices.Clone(opts.Dirs),
		interval: opts.PollInterval,
		debounce: opts.Debounce,
		events:   make(chan string, 64),
		done:     make(chan struct{}),
	}
	if w.interval <= 0 {
		w.interval = 2 * time.Second
	}

	if opts.Polling {
		w.startPolling()
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.startPolling()
		return w, nil
	}
	added := 0
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			slog.Debug("not watching directory", "dir", dir, "error", err)
			continue
		}
		added++
	}
	if added < len(w.dirs) {
		// A missing directory could appear later; only polling notices.
		fsw.Close()
		slog.Info("some settings directories are missing, polling instead", "dirs", strings.Join(w.dirs, ";"))
		w.startPolling()
		return w, nil
	}

	w.fsw = fsw
	w.wg.Add(1)
	go w.watch()
	return w, nil
}

// Events delivers changed file paths.
func (w *Watcher) Events() <-chan string { return w.events }

// Polling reports whether the watcher is rescanning instead of using
// native notifications.
func (w *Watcher) Polling() bool { return w.polling.Load() }

// Close stops the watcher. Events is not closed.
func (w *Watcher) Close() error {
	w.once.Do(func() {
		close(w.done)
		w.wg.Wait()
	})
	return nil
}

// ///////////////////////////////////////////////
// Native Notifications
// ///////////////////////////////////////////////

func (w *Watcher) watch() {
	defer w.wg.Done()
	defer w.fsw.Close()

	pending := map[string]bool{}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !IsSettingsFile(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			pending[event.Name] = true
			if w.debounce <= 0 {
				if !w.flush(pending) {
					timer.Reset(w.retryDelay())
				}
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			if !w.flush(pending) {
				timer.Reset(w.retryDelay())
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			w.flush(pending)
			w.startPolling()
			return
		}
	}
}

// flush emits pending in a stable order and removes what was delivered.
// Paths the consumer had no room for stay pending; it reports whether
// everything went out.
func (w *Watcher) flush(pending map[string]bool) bool {
	names := make([]string, 0, len(pending))
	for p := range pending {
		names = append(names, p)
	}
	slices.Sort(names)
	for _, p := range names {
		if !w.emit(p) {
			slog.Debug("watcher backlogged, retrying later", "pending", len(pending))
			return false
		}
		delete(pending, p)
	}
	return true
}

// emit reports false when the consumer is too far behind to take path.
func (w *Watcher) emit(path string) bool {
	select {
	case w.events <- path:
		return true
	case <-w.done:
		return true
	default:
		return false
	}
}

// retryDelay is how long a backlog waits before the next delivery attempt.
func (w *Watcher) retryDelay() time.Duration {
	return max(w.debounce, 50*time.Millisecond)
}

// ///////////////////////////////////////////////
// Polling
// ///////////////////////////////////////////////

type stamp struct {
	mod  time.Time
	size int64
}

// startPolling is called either from New or from watch, which still holds
// its own WaitGroup slot, so Add never races with a zero-count Wait.
func (w *Watcher) startPolling() {
	w.wg.Add(1)
	w.polling.Store(true)
	go func() {
		defer w.wg.Done()
		w.poll()
	}()
}

func (w *Watcher) poll() {
	last := w.scan()
	backlog := map[string]bool{}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			cur := w.scan()
			for _, p := range diff(last, cur) {
				backlog[p] = true
			}
			last = cur
			w.flush(backlog)
		}
	}
}

// scan stamps every settings file in the watched directories.
func (w *Watcher) scan() map[string]stamp {
	out := map[string]stamp{}
	for _, dir := range w.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !IsSettingsFile(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			out[filepath.Join(dir, e.Name())] = stamp{mod: info.ModTime(), size: info.Size()}
		}
	}
	return out
}

// diff returns the sorted paths added, removed or modified between scans.
func diff(prev, cur map[string]stamp) []string {
	var changed []string
	for p, s := range cur {
		if old, ok := prev[p]; !ok || !old.mod.Equal(s.mod) || old.size != s.size {
			changed = append(changed, p)
		}
	}
	for p := range prev {
		if _, ok := cur[p]; !ok {
			changed = append(changed, p)
		}
	}
	slices.Sort(changed)
	return changed
}
