package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gogpu/ggbuffer"
)

// reloadDelay coalesces the burst of events an editor produces on save.
const reloadDelay = 150 * time.Millisecond

// watch runs the demo and restarts it whenever the config file at path
// changes, until ctx is done. A broken config is reported and the previous
// one keeps running.
func watch(ctx context.Context, path string, override func(*Config), report func(Config, runStats, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer w.Close()

	// Editors often replace the file, so watch its directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	var (
		cancel = func() {}
		done   chan struct{}
	)
	start := func(cfg Config) {
		var runCtx context.Context
		runCtx, cancel = context.WithCancel(ctx)
		done = make(chan struct{})
		go func(ctx context.Context, done chan struct{}) {
			defer close(done)
			st, err := run(ctx, cfg)
			report(cfg, st, err)
		}(runCtx, done)
	}
	stop := func() {
		cancel()
		if done != nil {
			<-done
		}
	}
	defer stop()

	load := func() (Config, error) {
		cfg, err := loadConfig(path)
		if err != nil {
			return Config{}, err
		}
		override(&cfg)
		return cfg, cfg.validate()
	}

	cfg, err := load()
	if err != nil {
		return err
	}
	start(cfg)

	for waitChange(ctx, w, path) {
		cfg, err := load()
		if err != nil {
			ggbuffer.Logger().Warn("config reload failed", "path", path, "err", err)
			continue
		}
		ggbuffer.Logger().Info("config changed, restarting", "path", path)
		stop()
		start(cfg)
	}
	return nil
}

// waitChange blocks until path is written or replaced, or ctx is done. It
// reports false once ctx is done.
func waitChange(ctx context.Context, w *fsnotify.Watcher, path string) bool {
	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return false
		case err, ok := <-w.Errors:
			if !ok {
				return false
			}
			ggbuffer.Logger().Warn("watcher error", "err", err)
		case ev, ok := <-w.Events:
			if !ok {
				return false
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if !drain(ctx, w) {
				return false
			}
			return true
		}
	}
}

// drain discards events until reloadDelay passes without one.
func drain(ctx context.Context, w *fsnotify.Watcher) bool {
	t := time.NewTimer(reloadDelay)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case _, ok := <-w.Events:
			if !ok {
				return false
			}
			t.Reset(reloadDelay)
		case <-t.C:
			return true
		}
	}
}
