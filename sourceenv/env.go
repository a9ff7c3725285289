package sourceenv

import (
	"context"
	"os"
	"strings"

	"github.com/corwaith/halyard"
	"github.com/corwaith/halyard/internal/normalize"
)

// Options configures environment variable source behavior.
type Options struct {
	// Prefix filters vars starting with prefix (stripped before
	// normalization). Empty = load all vars.
	Prefix string

	// CaseSensitive controls prefix matching (default: false, so APP_
	// matches app_, App_, etc.). Keys are always lowercased after the
	// prefix is stripped.
	CaseSensitive bool
}

type envSource struct {
	opts Options
}

// New creates an environment variable source.
func New(opts Options) halyard.Source {
	return &envSource{opts: opts}
}

// Load scans environment variables, filters by prefix, and normalizes keys.
func (e *envSource) Load(ctx context.Context) (map[string]any, error) {
	data, _, err := e.LoadWithOrigins(ctx)
	return data, err
}

// LoadWithOrigins is Load plus per-key attribution to the original variable
// name (e.g., "env:APP_DATABASE__PASSWORD").
func (e *envSource) LoadWithOrigins(ctx context.Context) (map[string]any, map[string]string, error) {
	result := make(map[string]any)
	origins := make(map[string]string)

	for _, pair := range os.Environ() {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		key := name
		if e.opts.Prefix != "" {
			var hasPrefix bool
			if e.opts.CaseSensitive {
				hasPrefix = strings.HasPrefix(key, e.opts.Prefix)
			} else {
				hasPrefix = strings.HasPrefix(strings.ToUpper(key), strings.ToUpper(e.opts.Prefix))
			}
			if !hasPrefix {
				continue
			}
			key = key[len(e.opts.Prefix):]
		}

		if key == "" {
			continue
		}

		normalized := normalize.ToLowerDotPath(key)
		result[normalized] = value
		origins[normalized] = "env:" + name
	}

	return result, origins, nil
}

// Watch returns ErrWatchNotSupported (env vars don't change at runtime).
func (e *envSource) Watch(ctx context.Context) (<-chan halyard.ChangeEvent, error) {
	return nil, halyard.ErrWatchNotSupported
}

// Name returns the source identifier.
func (e *envSource) Name() string {
	return "env"
}
