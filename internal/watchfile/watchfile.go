// Package watchfile registers watches declared in a YAML file and keeps them
// in sync with the file while it changes on disk.
//
// File format:
//
//	watches:
//	  - watch_id: release
//	    source: checklist
//	    title: Release checklist
//	    show_toast: true
//	    recipient: {email: dev@example.com, name: Dev}
//	    items:
//	      - {item_id: tag, text: Tag release, deadline: 2026-03-01T18:00:00Z}
package watchfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/notifyhub/deadline-reminders/internal/domain"
)

type file struct {
	Watches []domain.WatchConfig `yaml:"watches"`
}

// Parse decodes and validates a watch file. Watch ids must be unique.
func Parse(data []byte) ([]domain.WatchConfig, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode watch file: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Watches))
	for i := range f.Watches {
		cfg := &f.Watches[i]
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("watch %d (%q): %w", i, cfg.WatchID, err)
		}
		if _, dup := seen[cfg.WatchID]; dup {
			return nil, fmt.Errorf("duplicate watch id %q", cfg.WatchID)
		}
		seen[cfg.WatchID] = struct{}{}
	}
	return f.Watches, nil
}

// Registrar is the subset of the reminder service the loader drives.
type Registrar interface {
	Watch(cfg domain.WatchConfig) (func(), error)
	Cancel(watchID string) bool
}

// Loader applies a watch file to a Registrar. It only cancels ids it
// registered itself, so watches created over HTTP are left alone.
type Loader struct {
	path     string
	target   Registrar
	logger   *zap.Logger
	debounce time.Duration

	mu    sync.Mutex
	owned map[string]struct{}
}

func NewLoader(path string, target Registrar, logger *zap.Logger) *Loader {
	return &Loader{
		path:     path,
		target:   target,
		logger:   logger,
		debounce: 250 * time.Millisecond,
		owned:    make(map[string]struct{}),
	}
}

// Apply reads the file, (re)watches every declared config and cancels the
// ids that disappeared since the previous Apply. A file that fails to parse
// leaves the current registrations untouched.
func (l *Loader) Apply() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read watch file: %w", err)
	}
	configs, err := Parse(data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := make(map[string]struct{}, len(configs))
	for _, cfg := range configs {
		if _, err := l.target.Watch(cfg); err != nil {
			l.logger.Warn("watch from file rejected", zap.String("watch_id", cfg.WatchID), zap.Error(err))
			continue
		}
		next[cfg.WatchID] = struct{}{}
	}
	removed := 0
	for id := range l.owned {
		if _, ok := next[id]; !ok {
			l.target.Cancel(id)
			removed++
		}
	}
	l.owned = next

	l.logger.Info("watch file applied",
		zap.String("path", l.path),
		zap.Int("watches", len(next)),
		zap.Int("removed", removed),
	)
	return nil
}

// Run watches the file's directory and re-applies it after writes settle.
// It blocks until ctx is done.
func (l *Loader) Run(ctx context.Context) error {
	dir := filepath.Dir(l.path)
	name := filepath.Clean(l.path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		// Editors write in several steps; apply once they settle.
		timer = time.AfterFunc(l.debounce, func() {
			if err := l.Apply(); err != nil {
				l.logger.Error("watch file reload failed", zap.Error(err))
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) == name && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}
