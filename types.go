package halyard

import (
	"context"
	"errors"
	"time"
)

// Source provides configuration data from a backend (env vars, files,
// secret stores). Keys must be normalized to lowercase dot-separated paths
// (e.g., "database.host").
type Source interface {
	// Load returns configuration as a flat map. Missing optional sources
	// should return an empty map rather than an error.
	Load(ctx context.Context) (map[string]any, error)

	// Name returns a short identifier used in error messages and provenance
	// (e.g., "env", "file:config.yaml").
	Name() string

	// Watch emits a ChangeEvent when the backend changes. Sources that cannot
	// watch return ErrWatchNotSupported.
	Watch(ctx context.Context) (<-chan ChangeEvent, error)
}

// SourceWithOrigins is an optional Source extension for per-key provenance.
// Origins map normalized keys to a fully-formed attribution string such as
// "env:APP_PORT" or "secret:database:/run/secrets/db.yaml".
type SourceWithOrigins interface {
	Source

	LoadWithOrigins(ctx context.Context) (data map[string]any, origins map[string]string, err error)
}

// ChangeEvent notifies of a configuration change in a watched source.
type ChangeEvent struct {
	At    time.Time
	Cause string // Description (e.g., "file-changed")
}

// ErrWatchNotSupported is returned by Watch when a source cannot watch.
var ErrWatchNotSupported = errors.New("halyard: watch not supported by this source")

// Optional distinguishes "not set" from "zero value".
type Optional[T any] struct {
	Value T
	Set   bool
}

// Get returns the wrapped value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// OrDefault returns the wrapped value or the provided default.
func (o Optional[T]) OrDefault(defaultVal T) T {
	if o.Set {
		return o.Value
	}
	return defaultVal
}

// Validator performs custom validation after tag-based validation.
// Use for cross-field, semantic, or external checks.
type Validator[T any] interface {
	// Validate checks configuration. Return *ValidationError for field-level
	// errors so they aggregate with tag-based failures.
	Validate(ctx context.Context, cfg *T) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc[T any] func(ctx context.Context, cfg *T) error

func (f ValidatorFunc[T]) Validate(ctx context.Context, cfg *T) error {
	return f(ctx, cfg)
}

// Snapshot is a configuration version emitted by Watch().
type Snapshot[T any] struct {
	Config   *T
	Version  int64 // Increments on reload (starts at 1)
	LoadedAt time.Time
	Source   string // What triggered the load
}
