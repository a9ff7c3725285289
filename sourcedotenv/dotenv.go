package sourcedotenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/corwaith/halyard"
	"github.com/corwaith/halyard/internal/normalize"
)

// Options configures .env source behavior.
type Options struct {
	// Required makes a missing file an error. Default: false (missing files
	// load as an empty map).
	Required bool
}

type dotenvSource struct {
	path string
	opts Options
}

// New creates a .env file source.
func New(path string, opts Options) halyard.Source {
	return &dotenvSource{path: path, opts: opts}
}

// Load parses the .env file and returns normalized keys.
func (d *dotenvSource) Load(ctx context.Context) (map[string]any, error) {
	data, _, err := d.LoadWithOrigins(ctx)
	return data, err
}

// LoadWithOrigins is Load plus per-key attribution to the original entry name.
func (d *dotenvSource) LoadWithOrigins(ctx context.Context) (map[string]any, map[string]string, error) {
	vars, err := godotenv.Read(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if d.opts.Required {
				return nil, nil, fmt.Errorf("required env file not found: %s: %w", d.path, err)
			}
			return map[string]any{}, map[string]string{}, nil
		}
		return nil, nil, fmt.Errorf("parse env file %s: %w", d.path, err)
	}

	result := make(map[string]any, len(vars))
	origins := make(map[string]string, len(vars))
	for name, value := range vars {
		key := normalize.ToLowerDotPath(name)
		result[key] = value
		origins[key] = d.Name() + ":" + name
	}

	return result, origins, nil
}

// Watch returns ErrWatchNotSupported. Watch the file with sourcefile if the
// application needs live reload of dotenv-style values.
func (d *dotenvSource) Watch(ctx context.Context) (<-chan halyard.ChangeEvent, error) {
	return nil, halyard.ErrWatchNotSupported
}

// Name returns the source identifier.
func (d *dotenvSource) Name() string {
	return "dotenv:" + filepath.Base(d.path)
}
