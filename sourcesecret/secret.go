package sourcesecret

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/corwaith/halyard"
	"github.com/corwaith/halyard/internal/normalize"
	"github.com/corwaith/halyard/sourcefile"
)

// DocumentLoader parses a structured configuration file into a value tree.
// The default loader auto-detects YAML, JSON, and TOML from the extension.
type DocumentLoader interface {
	LoadDocument(path string) (map[string]any, error)
}

// DocumentLoaderFunc adapts a function to the DocumentLoader interface.
type DocumentLoaderFunc func(path string) (map[string]any, error)

func (f DocumentLoaderFunc) LoadDocument(path string) (map[string]any, error) {
	return f(path)
}

// Options configures which environment variables are treated as secret-file
// pointers and how keys are derived from their names. All matching is
// case-insensitive.
type Options struct {
	// Prefix limits matching to variables starting with Prefix followed by
	// the prefix separator. With Prefix "APP", the variable APP_DB_FILE
	// derives the key "db". Empty = no prefix requirement.
	Prefix string

	// PrefixSeparator separates Prefix from the rest of the name.
	// Defaults to Separator, then to "_".
	PrefixSeparator string

	// Suffix marks a variable as a secret-file pointer. Default: "FILE".
	Suffix string

	// SuffixSeparator separates the rest of the name from Suffix.
	// Defaults to Separator, then to "_".
	SuffixSeparator string

	// Separator is the segment delimiter inside the derived key; every
	// occurrence is translated to "." so downstream merging treats segments
	// as nesting. Empty (the default) disables translation.
	Separator string

	// KeepPrefix retains the matched prefix in the derived key instead of
	// stripping it.
	KeepPrefix bool

	// Loader parses referenced files. Defaults to sourcefile.Read with
	// format auto-detection.
	Loader DocumentLoader

	// Environ supplies the environment snapshot as "KEY=value" pairs.
	// Defaults to os.Environ. Overridable for testing.
	Environ func() []string
}

// Table is a loaded secret file attached beneath a derived key in the tree
// returned by Collect.
type Table struct {
	// Origin identifies where the table came from, as "secret:<key>:<path>".
	// Diagnostic only; it never participates in matching or merging.
	Origin string

	// Values is the file's parsed content.
	Values map[string]any
}

// Source scans the environment for secret-file pointers. It is immutable
// after New and safe for concurrent use; every collection pass reads a fresh
// environment snapshot and returns an independent tree.
type Source struct {
	opts Options
}

// New creates a secret-file environment source.
func New(opts Options) *Source {
	if opts.Loader == nil {
		opts.Loader = DocumentLoaderFunc(func(path string) (map[string]any, error) {
			return sourcefile.Read(path, "")
		})
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ
	}
	return &Source{opts: opts}
}

// patterns holds the match patterns derived from Options for one collection
// pass. All fields are lowercase.
type patterns struct {
	prefix    string // "" when no prefix is configured
	suffix    string // separator + suffix, always present
	full      string // exact name that triggers a direct flat merge
	separator string // segment delimiter, "" disables translation
}

func (o Options) patterns() patterns {
	prefixSep := o.PrefixSeparator
	if prefixSep == "" {
		if o.Separator != "" {
			prefixSep = o.Separator
		} else {
			prefixSep = "_"
		}
	}

	suffixSep := o.SuffixSeparator
	if suffixSep == "" {
		if o.Separator != "" {
			suffixSep = o.Separator
		} else {
			suffixSep = "_"
		}
	}

	suffix := o.Suffix
	if suffix == "" {
		suffix = "FILE"
	}

	p := patterns{
		suffix:    strings.ToLower(suffixSep + suffix),
		separator: o.Separator,
	}

	if o.Prefix != "" {
		p.prefix = strings.ToLower(o.Prefix + prefixSep)
	}

	// The full pattern collapses to prefix+separator+suffix only when both
	// separators agree; with divergent separators the prefix and suffix are
	// concatenated directly. Historical behavior, kept as-is.
	switch {
	case o.Prefix != "" && prefixSep == suffixSep:
		p.full = strings.ToLower(o.Prefix + prefixSep + suffix)
	case o.Prefix != "":
		p.full = strings.ToLower(o.Prefix + suffix)
	default:
		p.full = strings.ToLower(suffix)
	}

	return p
}

// Collect scans the environment snapshot and returns the tree of loaded
// secrets. Variables matching the full pattern have their file's top-level
// keys merged directly into the tree (last write wins across variables, in
// iteration order); prefix/suffix matches attach the file's content as a
// Table beneath the derived key. Empty-valued and non-matching variables are
// skipped silently. The first file that fails to load aborts the pass: the
// error is returned and no partial tree survives.
//
// Iteration order of environment variables is platform-defined; callers must
// not rely on it beyond last-write-wins on key collisions.
func (s *Source) Collect() (map[string]any, error) {
	p := s.opts.patterns()
	tree := make(map[string]any)

	for _, pair := range s.opts.Environ() {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		// Empty values are treated as unset.
		if value == "" {
			continue
		}

		key := strings.ToLower(name)

		if key == p.full {
			loaded, err := s.opts.Loader.LoadDocument(value)
			if err != nil {
				return nil, fmt.Errorf("secret %s: %w", name, err)
			}
			for k, v := range loaded {
				tree[k] = v
			}
			continue
		}

		if p.prefix != "" {
			if !strings.HasPrefix(key, p.prefix) {
				continue
			}
			if !s.opts.KeepPrefix {
				key = key[len(p.prefix):]
			}
		}

		if !strings.HasSuffix(key, p.suffix) {
			continue
		}
		key = key[:len(key)-len(p.suffix)]

		if p.separator != "" {
			key = strings.ReplaceAll(key, p.separator, ".")
		}

		loaded, err := s.opts.Loader.LoadDocument(value)
		if err != nil {
			return nil, fmt.Errorf("secret %s: %w", name, err)
		}
		tree[key] = Table{
			Origin: fmt.Sprintf("secret:%s:%s", key, value),
			Values: loaded,
		}
	}

	return tree, nil
}

// Load collects secrets and flattens them to the loader's dot-path contract:
// full-pattern keys flatten in place, tables flatten beneath their derived
// key.
func (s *Source) Load(ctx context.Context) (map[string]any, error) {
	data, _, err := s.LoadWithOrigins(ctx)
	return data, err
}

// LoadWithOrigins is Load plus per-key origin attribution, so provenance can
// point each bound field at "secret:<key>:<path>".
func (s *Source) LoadWithOrigins(ctx context.Context) (map[string]any, map[string]string, error) {
	tree, err := s.Collect()
	if err != nil {
		return nil, nil, err
	}

	flat := make(map[string]any)
	origins := make(map[string]string)

	for key, value := range tree {
		table, ok := value.(Table)
		if !ok {
			// Full-pattern merge: the value tree sits at top level.
			scoped := make(map[string]any)
			normalize.Flatten("", map[string]any{key: value}, scoped)
			for k, v := range scoped {
				flat[k] = v
				origins[k] = s.Name()
			}
			continue
		}

		scoped := make(map[string]any)
		normalize.Flatten(key, table.Values, scoped)
		for k, v := range scoped {
			flat[k] = v
			origins[k] = table.Origin
		}
	}

	return flat, origins, nil
}

// Watch returns ErrWatchNotSupported: the environment snapshot does not
// change from under a running process in any observable way.
func (s *Source) Watch(ctx context.Context) (<-chan halyard.ChangeEvent, error) {
	return nil, halyard.ErrWatchNotSupported
}

// Name returns the source identifier used in error messages and provenance.
func (s *Source) Name() string {
	return "secretenv"
}
