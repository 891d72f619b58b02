package catalog

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "channelposter/pkg/logx"
)

// Watcher keeps the most recently loaded catalog for a file and reloads it
// when the file changes. A failed reload keeps the previous catalog.
type Watcher struct {
	path string
	log  logx.Logger
	cur  atomic.Pointer[Catalog]

	// debounce coalesces bursts of editor write events.
	debounce time.Duration
	reloads  atomic.Uint64
}

// NewWatcher loads path once; the initial load must succeed.
func NewWatcher(path string, log logx.Logger) (*Watcher, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	w := &Watcher{path: path, log: log, debounce: 200 * time.Millisecond}
	w.cur.Store(c)
	return w, nil
}

// Current returns the latest successfully loaded catalog.
func (w *Watcher) Current() *Catalog { return w.cur.Load() }

// Reloads returns how many reloads succeeded since start.
func (w *Watcher) Reloads() uint64 { return w.reloads.Load() }

// Reload loads the file now and swaps it in on success.
func (w *Watcher) Reload() error {
	c, err := Load(w.path)
	if err != nil {
		w.log.Warn("catalog reload failed; keeping previous catalog", logx.String("path", w.path), logx.Err(err))
		return err
	}
	w.cur.Store(c)
	w.reloads.Add(1)
	w.log.Info("catalog reloaded", logx.String("path", w.path), logx.Int("posts", c.Len()))
	return nil
}

// Run watches the catalog's directory until ctx is done. The directory is
// watched (not the file) so atomic-rename saves are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(w.path)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			_ = w.Reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("catalog watch error", logx.Err(err))
		}
	}
}
