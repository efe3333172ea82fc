package modelpack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce is how long a model directory must stay quiet before it is
// processed again.
const WatchDebounce = 500 * time.Millisecond

// Watch re-packs a model whenever files under its source directory change,
// and calls onResult with each outcome. It blocks until ctx is done.
func (p *Packer) Watch(ctx context.Context, onResult func(Result)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	src, err := filepath.Abs(p.opts.SourceDir)
	if err != nil {
		return err
	}
	if err := addTree(w, src); err != nil {
		return err
	}
	p.log.Info("Watching models.", "dir", src)

	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
		wg     sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			if t.Stop() {
				wg.Done()
			}
		}
		mu.Unlock()
		wg.Wait()
	}()

	schedule := func(model string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[model]; ok && t.Stop() {
			wg.Done()
		}
		wg.Add(1)
		var t *time.Timer
		t = time.AfterFunc(WatchDebounce, func() {
			defer wg.Done()
			mu.Lock()
			if timers[model] == t {
				delete(timers, model)
			}
			mu.Unlock()
			if ctx.Err() != nil {
				return
			}
			res := p.PackModel(ctx, model)
			if err := WriteManifest(p.opts.OutputDir, &Report{Results: []Result{res}, Started: time.Now()}); err != nil {
				p.log.Error("Failed to update manifest.", "error", err)
			}
			if onResult != nil {
				onResult(res)
			}
		})
		timers[model] = t
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			p.log.Warn("Watcher error.", "error", err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					if err := addTree(w, ev.Name); err != nil {
						p.log.Warn("Cannot watch new directory.", "dir", ev.Name, "error", err)
					}
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			model := modelOf(src, ev.Name)
			if model == "" || !p.handles(model) {
				continue
			}
			p.log.Debug("Model changed.", "model", model, "event", ev.Op.String())
			schedule(model)
		}
	}
}

// handles reports whether model is in the packer's explicit list, or
// whether there is no list.
func (p *Packer) handles(model string) bool {
	if len(p.opts.Models) == 0 {
		return true
	}
	for _, m := range p.opts.Models {
		if m == model {
			return true
		}
	}
	return false
}

// modelOf returns the model directory name for a path under root, or "".
func modelOf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	first, rest, _ := strings.Cut(filepath.ToSlash(rel), "/")
	if rest == "" {
		// A file directly in root is not part of any model, but a new
		// model directory is.
		if st, err := os.Stat(path); err != nil || !st.IsDir() {
			return ""
		}
	}
	return first
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
