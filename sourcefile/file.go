package sourcefile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/corwaith/halyard"
	"github.com/corwaith/halyard/internal/normalize"
)

// Options configures file source behavior.
type Options struct {
	// Format forces "yaml", "json", or "toml". Auto-detected from the file
	// extension when empty.
	Format string

	// Required makes a missing file an error. Default: false (missing files
	// load as an empty map).
	Required bool
}

type fileSource struct {
	path string
	opts Options
}

// New creates a file-based configuration source.
func New(path string, opts Options) halyard.Source {
	return &fileSource{path: path, opts: opts}
}

// Read parses the file at path into a nested value tree. An empty format
// auto-detects from the extension. Unlike the Source returned by New, Read
// does not flatten keys and a missing file is always an error.
func Read(path, format string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if format == "" {
		format = inferFormat(path)
	}

	var raw map[string]any
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse YAML file %s: %w", path, err)
		}
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse JSON file %s: %w", path, err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse TOML file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported file format %q for %s (supported: yaml, json, toml)", format, path)
	}

	return raw, nil
}

// Load reads and parses the file, returning flattened configuration.
func (f *fileSource) Load(ctx context.Context) (map[string]any, error) {
	data, _, err := f.LoadWithOrigins(ctx)
	return data, err
}

// LoadWithOrigins reads and parses the file, attributing every key to it.
func (f *fileSource) LoadWithOrigins(ctx context.Context) (map[string]any, map[string]string, error) {
	tree, err := Read(f.path, f.opts.Format)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if f.opts.Required {
				return nil, nil, fmt.Errorf("required config file not found: %w", err)
			}
			return map[string]any{}, map[string]string{}, nil
		}
		return nil, nil, err
	}

	flat := make(map[string]any)
	normalize.Flatten("", tree, flat)

	origins := make(map[string]string, len(flat))
	for key := range flat {
		origins[key] = f.Name()
	}

	return flat, origins, nil
}

// Watch emits a ChangeEvent whenever the file is written, created, or
// removed. The file's directory is watched so that editors replacing the
// file (rename-over) are still observed.
func (f *fileSource) Watch(ctx context.Context) (<-chan halyard.ChangeEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	target, err := filepath.Abs(f.path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("resolve %s: %w", f.path, err)
	}

	ch := make(chan halyard.ChangeEvent)
	go func() {
		defer close(ch)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				abs, err := filepath.Abs(event.Name)
				if err != nil || abs != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case ch <- halyard.ChangeEvent{At: time.Now(), Cause: "file-changed:" + filepath.Base(f.path)}:
				case <-ctx.Done():
					return
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return ch, nil
}

// Name returns a human-readable identifier for this source.
func (f *fileSource) Name() string {
	return "file:" + filepath.Base(f.path)
}

func inferFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}
