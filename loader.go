package halyard

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// mergedEntry is one key's value after merging all sources, with the
// attribution of the source that won.
type mergedEntry struct {
	value  any
	origin string
}

// Loader loads, merges, binds, and validates configuration from multiple
// sources. Sources are processed in order, later ones overriding earlier
// ones. Thread-safe for Load calls, not for concurrent reconfiguration.
type Loader[T any] struct {
	sources    []Source
	validators []Validator[T]
	strict     bool // Fail on unknown keys (default: true)
}

// NewLoader creates a Loader with no sources or validators and strict mode
// enabled.
func NewLoader[T any]() *Loader[T] {
	return &Loader[T]{strict: true}
}

// WithSource adds a source. Sources are processed in order (later override
// earlier).
func (l *Loader[T]) WithSource(src Source) *Loader[T] {
	l.sources = append(l.sources, src)
	return l
}

// WithValidator adds a custom validator, executed after tag-based validation.
func (l *Loader[T]) WithValidator(v Validator[T]) *Loader[T] {
	l.validators = append(l.validators, v)
	return l
}

// Strict controls whether unknown keys cause errors. Default: true.
func (l *Loader[T]) Strict(strict bool) *Loader[T] {
	l.strict = strict
	return l
}

// Load loads, merges, binds, and validates configuration from all sources.
// Returns the populated config, or a *ValidationError aggregating every
// field failure.
func (l *Loader[T]) Load(ctx context.Context) (*T, error) {
	merged, err := l.merge(ctx)
	if err != nil {
		return nil, err
	}

	if l.strict {
		var zero T
		validKeys := collectValidKeys(reflect.TypeOf(zero), "")

		var unknown []FieldError
		for key := range merged {
			if !validKeys[key] {
				unknown = append(unknown, FieldError{
					FieldPath: key,
					Code:      ErrCodeUnknownKey,
					Message:   "unknown configuration key (strict mode)",
				})
			}
		}
		if len(unknown) > 0 {
			return nil, &ValidationError{FieldErrors: unknown}
		}
	}

	cfg := new(T)
	cfgValue := reflect.ValueOf(cfg).Elem()

	var provenanceFields []FieldProvenance
	allErrors := bindStruct(cfgValue, merged, &provenanceFields, "", "")
	allErrors = append(allErrors, validateStruct(cfgValue)...)

	for i, validator := range l.validators {
		if err := validator.Validate(ctx, cfg); err != nil {
			if valErr, ok := err.(*ValidationError); ok {
				allErrors = append(allErrors, valErr.FieldErrors...)
				continue
			}
			return nil, fmt.Errorf("validator %d failed: %w", i, err)
		}
	}

	if len(allErrors) > 0 {
		return nil, &ValidationError{FieldErrors: allErrors}
	}

	storeProvenance(cfg, &Provenance{Fields: provenanceFields})
	return cfg, nil
}

// merge loads every source in order and merges keys, later sources winning.
// Source load errors abort the merge; the source's error is wrapped and
// reachable via errors.Is/As.
func (l *Loader[T]) merge(ctx context.Context) (map[string]mergedEntry, error) {
	merged := make(map[string]mergedEntry)

	for _, source := range l.sources {
		var data map[string]any
		var origins map[string]string
		var err error

		if withOrigins, ok := source.(SourceWithOrigins); ok {
			data, origins, err = withOrigins.LoadWithOrigins(ctx)
		} else {
			data, err = source.Load(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("load source %s: %w", source.Name(), err)
		}

		for key, value := range data {
			normalizedKey := strings.ToLower(key)

			origin := source.Name()
			if o, ok := origins[normalizedKey]; ok {
				origin = o
			}

			merged[normalizedKey] = mergedEntry{value: value, origin: origin}
		}
	}

	return merged, nil
}

// collectValidKeys recursively collects every key path a struct can bind,
// for unknown-key detection in strict mode. Derivation mirrors bindStruct.
func collectValidKeys(t reflect.Type, prefix string) map[string]bool {
	validKeys := make(map[string]bool)

	if t == nil {
		return validKeys
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return validKeys
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := parseTag(field.Tag.Get("conf"))
		keyPath := determineKeyPath(field.Name, tag, prefix)
		validKeys[keyPath] = true

		fieldType := field.Type

		if isOptionalType(fieldType) {
			inner := fieldType.Field(0).Type
			if inner.Kind() == reflect.Struct && inner != timeType {
				for k := range collectValidKeys(inner, keyPath) {
					validKeys[k] = true
				}
			}
			continue
		}

		if fieldType.Kind() == reflect.Struct && fieldType != timeType {
			nestedPrefix := keyPath
			if tag.prefix != "" {
				nestedPrefix = tag.prefix
			}
			for k := range collectValidKeys(fieldType, nestedPrefix) {
				validKeys[k] = true
			}
		}
	}

	return validKeys
}
