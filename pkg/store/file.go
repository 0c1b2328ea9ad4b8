package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-optionform/pkg/logging"
	"github.com/goliatone/go-optionform/pkg/mask"
)

// FileOption configures a File store.
type FileOption func(*File)

func WithFileLogger(l logging.Logger) FileOption {
	return func(f *File) { f.logger = logging.OrNop(l) }
}

// File keeps options in a YAML mapping of name to value. Writes rewrite the
// whole file; Watch reloads it when it changes on disk.
type File struct {
	path   string
	logger logging.Logger

	mu     sync.RWMutex
	values *mask.Map
}

// OpenFile loads path. A missing file starts empty and is created on the
// first write.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	f := &File{path: path, logger: logging.Nop(), values: mask.NewMap()}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) Path() string { return f.path }

// Reload replaces the in-memory values with the file contents.
func (f *File) Reload() error {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.mu.Lock()
		f.values = mask.NewMap()
		f.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read %s: %w", f.path, err)
	}

	var doc mask.Value
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("store: parse %s: %w", f.path, err)
	}
	values := mask.NewMap()
	switch doc.Kind() {
	case mask.KindNull:
	case mask.KindMap:
		values = doc.Map().Clone()
	default:
		return fmt.Errorf("store: %s must hold a mapping, got %s", f.path, doc.Kind())
	}

	f.mu.Lock()
	f.values = values
	f.mu.Unlock()
	return nil
}

func (f *File) Get(_ context.Context, name string) (mask.Value, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values.Get(name)
	if !ok {
		return mask.Null(), false, nil
	}
	return v.Clone(), true, nil
}

func (f *File) Set(_ context.Context, name string, v mask.Value) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if current, ok := f.values.Get(name); ok && current.Equal(v) {
		return false, nil
	}
	next := f.values.Clone()
	next.Set(name, v.Clone())
	if err := f.write(next); err != nil {
		return false, err
	}
	f.values = next
	return true, nil
}

// Snapshot returns a copy of every stored value.
func (f *File) Snapshot() mask.Value {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return mask.FromMap(f.values.Clone())
}

func (f *File) write(values *mask.Map) error {
	data, err := yaml.Marshal(mask.FromMap(values))
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", f.path, err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".optionform-*")
	if err != nil {
		return fmt.Errorf("store: write %s: %w", f.path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("store: write %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: write %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: write %s: %w", f.path, err)
	}
	return nil
}

// Watch reloads the file whenever it is written, created or renamed into
// place, until ctx is done. onReload, when set, runs after each reload
// attempt with its error.
func (f *File) Watch(ctx context.Context, onReload func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("store: watch %s: %w", f.path, err)
	}
	// Editors replace files atomically, so watch the directory.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("store: watch %s: %w", f.path, err)
	}

	target := filepath.Clean(f.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				err := f.Reload()
				if err != nil {
					f.logger.Warn("option file reload failed", "path", f.path, "error", err)
				} else {
					f.logger.Debug("option file reloaded", "path", f.path)
				}
				if onReload != nil {
					onReload(err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Error("option file watcher", "path", f.path, "error", err)
			}
		}
	}()
	return nil
}
