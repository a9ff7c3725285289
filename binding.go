package halyard

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/corwaith/halyard/internal/normalize"
)

// tagConfig holds parsed directives from a struct field's `conf` tag.
type tagConfig struct {
	env        string   // Environment variable override (env:VAR_NAME)
	name       string   // Custom key path (name:custom.path)
	prefix     string   // Prefix for nested structs (prefix:foo)
	defValue   string   // Default value (default:value)
	min        string   // Minimum constraint (min:N)
	max        string   // Maximum constraint (max:M)
	oneof      []string // Allowed values (oneof:a,b,c)
	required   bool     // Field is required (required or required:true)
	secret     bool     // Field is secret (secret or secret:true)
	hasDefault bool     // Whether a default directive was present
}

// parseTag parses a `conf` struct tag into a structured tagConfig.
// Tag format: "directive1:value1,directive2:value2,..."
// Boolean directives can omit `:true` (e.g., "required" == "required:true").
func parseTag(tag string) tagConfig {
	cfg := tagConfig{}
	if tag == "" {
		return cfg
	}

	for _, directive := range splitDirectives(tag) {
		directive = strings.TrimSpace(directive)
		if directive == "" {
			continue
		}

		name, value, _ := strings.Cut(directive, ":")
		name = strings.TrimSpace(name)
		// Value is not trimmed: empty strings may be intentional.

		switch name {
		case "env":
			cfg.env = value
		case "name":
			cfg.name = value
		case "prefix":
			cfg.prefix = value
		case "default":
			cfg.defValue = value
			cfg.hasDefault = true
		case "min":
			cfg.min = value
		case "max":
			cfg.max = value
		case "oneof":
			if value != "" {
				cfg.oneof = strings.Split(value, ",")
				for i := range cfg.oneof {
					cfg.oneof[i] = strings.TrimSpace(cfg.oneof[i])
				}
			}
		case "required":
			cfg.required = value != "false"
		case "secret":
			cfg.secret = value != "false"
		}
	}

	return cfg
}

// splitDirectives splits a tag string into individual directives, handling
// the special case where oneof values contain commas.
func splitDirectives(tag string) []string {
	var directives []string
	var current strings.Builder
	inOneof := false

	for i := 0; i < len(tag); i++ {
		ch := tag[i]

		if !inOneof && strings.HasPrefix(tag[i:], "oneof:") {
			inOneof = true
			current.WriteString("oneof:")
			i += 5
			continue
		}

		if ch != ',' {
			current.WriteByte(ch)
			continue
		}

		if inOneof && !startsWithDirective(tag[i+1:]) {
			// Comma inside the oneof value list.
			current.WriteByte(ch)
			continue
		}

		inOneof = false
		directives = append(directives, current.String())
		current.Reset()
	}

	if current.Len() > 0 {
		directives = append(directives, current.String())
	}

	return directives
}

// startsWithDirective checks if a string starts with a known directive name.
func startsWithDirective(s string) bool {
	s = strings.TrimSpace(s)
	for _, d := range []string{"env:", "name:", "prefix:", "default:", "min:", "max:", "oneof:", "required", "secret"} {
		if strings.HasPrefix(s, d) {
			return true
		}
	}
	return false
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// isOptionalType reports whether t is an instantiation of Optional[T].
func isOptionalType(t reflect.Type) bool {
	return t.Kind() == reflect.Struct &&
		strings.HasPrefix(t.String(), "halyard.Optional[") &&
		t.NumField() == 2 &&
		t.Field(0).Name == "Value" &&
		t.Field(1).Name == "Set"
}

// determineKeyPath derives the merged-data key for a struct field: an
// explicit name: tag wins, otherwise the lowercased field name is nested
// under the current prefix.
func determineKeyPath(fieldName string, tag tagConfig, prefix string) string {
	if tag.name != "" {
		return tag.name
	}
	return normalize.ApplyPrefix(prefix, strings.ToLower(fieldName))
}

// resolveValue finds the effective value for a field: an env: tag override
// wins over merged source data. Returns the value, its origin, and whether
// anything was found.
func resolveValue(tag tagConfig, keyPath string, data map[string]mergedEntry) (any, string, bool) {
	if tag.env != "" {
		if v, ok := os.LookupEnv(tag.env); ok && v != "" {
			return v, "env:" + tag.env, true
		}
	}
	if entry, ok := data[keyPath]; ok {
		return entry.value, entry.origin, true
	}
	return nil, "", false
}

// bindStruct populates a struct value from merged source data, recording
// per-field provenance. fieldPrefix tracks the Go field path for error
// reporting; keyPrefix tracks the configuration key path.
func bindStruct(v reflect.Value, data map[string]mergedEntry, prov *[]FieldProvenance, fieldPrefix, keyPrefix string) []FieldError {
	var errs []FieldError

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !field.IsExported() {
			continue
		}

		fieldPath := field.Name
		if fieldPrefix != "" {
			fieldPath = fieldPrefix + "." + field.Name
		}

		tag := parseTag(field.Tag.Get("conf"))
		keyPath := determineKeyPath(field.Name, tag, keyPrefix)

		if isOptionalType(field.Type) {
			errs = append(errs, bindOptional(fieldValue, data, prov, tag, fieldPath, keyPath)...)
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != timeType {
			nestedPrefix := keyPath
			if tag.prefix != "" {
				nestedPrefix = tag.prefix
			}
			errs = append(errs, bindStruct(fieldValue, data, prov, fieldPath, nestedPrefix)...)
			continue
		}

		value, origin, found := resolveValue(tag, keyPath, data)
		if !found {
			if !tag.hasDefault {
				continue
			}
			value, origin = tag.defValue, "default"
		}

		converted, err := convertValue(value, field.Type)
		if err != nil {
			errs = append(errs, FieldError{
				FieldPath: fieldPath,
				Code:      ErrCodeInvalidType,
				Message:   err.Error(),
			})
			continue
		}

		fieldValue.Set(converted)
		*prov = append(*prov, FieldProvenance{
			FieldPath:  fieldPath,
			KeyPath:    keyPath,
			SourceName: origin,
			Secret:     tag.secret,
		})
	}

	return errs
}

// bindOptional populates an Optional[T] field, marking it set only when a
// value (or default) was found.
func bindOptional(fieldValue reflect.Value, data map[string]mergedEntry, prov *[]FieldProvenance, tag tagConfig, fieldPath, keyPath string) []FieldError {
	value, origin, found := resolveValue(tag, keyPath, data)
	if !found {
		if !tag.hasDefault {
			return nil
		}
		value, origin = tag.defValue, "default"
	}

	innerType := fieldValue.Type().Field(0).Type
	converted, err := convertValue(value, innerType)
	if err != nil {
		return []FieldError{{
			FieldPath: fieldPath,
			Code:      ErrCodeInvalidType,
			Message:   err.Error(),
		}}
	}

	fieldValue.Field(0).Set(converted)
	fieldValue.Field(1).SetBool(true)
	*prov = append(*prov, FieldProvenance{
		FieldPath:  fieldPath,
		KeyPath:    keyPath,
		SourceName: origin,
		Secret:     tag.secret,
	})
	return nil
}

// convertValue coerces a raw source value (string from env sources, typed
// values from file parsers) into the target field type.
func convertValue(value any, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()

	switch t {
	case durationType:
		d, err := toDuration(value)
		if err != nil {
			return out, err
		}
		out.SetInt(int64(d))
		return out, nil

	case timeType:
		switch v := value.(type) {
		case time.Time:
			out.Set(reflect.ValueOf(v))
			return out, nil
		case string:
			parsed, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return out, fmt.Errorf("cannot parse %q as time: %v", v, err)
			}
			out.Set(reflect.ValueOf(parsed))
			return out, nil
		default:
			return out, fmt.Errorf("cannot convert %T to time.Time", value)
		}
	}

	switch t.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			out.SetString(s)
		} else {
			out.SetString(fmt.Sprintf("%v", value))
		}
		return out, nil

	case reflect.Bool:
		switch v := value.(type) {
		case bool:
			out.SetBool(v)
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return out, fmt.Errorf("cannot parse %q as bool", v)
			}
			out.SetBool(b)
		default:
			return out, fmt.Errorf("cannot convert %T to bool", value)
		}
		return out, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(value)
		if err != nil {
			return out, err
		}
		if out.OverflowInt(n) {
			return out, fmt.Errorf("value %d overflows %s", n, t)
		}
		out.SetInt(n)
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(value)
		if err != nil {
			return out, err
		}
		if n < 0 || out.OverflowUint(uint64(n)) {
			return out, fmt.Errorf("value %d out of range for %s", n, t)
		}
		out.SetUint(uint64(n))
		return out, nil

	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(value)
		if err != nil {
			return out, err
		}
		out.SetFloat(f)
		return out, nil

	case reflect.Slice:
		return convertSlice(value, t)
	}

	if rv := reflect.ValueOf(value); rv.IsValid() && rv.Type().AssignableTo(t) {
		out.Set(rv)
		return out, nil
	}
	return out, fmt.Errorf("cannot convert %T to %s", value, t)
}

// convertSlice builds a slice of the target element type from a parsed list
// or a comma-separated string (the form env-style sources produce).
func convertSlice(value any, t reflect.Type) (reflect.Value, error) {
	var elems []any
	switch v := value.(type) {
	case []any:
		elems = v
	case []string:
		elems = make([]any, len(v))
		for i, s := range v {
			elems[i] = s
		}
	case string:
		if v != "" {
			for _, part := range strings.Split(v, ",") {
				elems = append(elems, strings.TrimSpace(part))
			}
		}
	default:
		return reflect.New(t).Elem(), fmt.Errorf("cannot convert %T to %s", value, t)
	}

	out := reflect.MakeSlice(t, len(elems), len(elems))
	for i, elem := range elems {
		converted, err := convertValue(elem, t.Elem())
		if err != nil {
			return reflect.New(t).Elem(), fmt.Errorf("element %d: %v", i, err)
		}
		out.Index(i).Set(converted)
	}
	return out, nil
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as integer", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", value)
	}
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as float", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", value)
	}
}

func toDuration(value any) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as duration", v)
		}
		return d, nil
	case int:
		return time.Duration(v), nil
	case int64:
		return time.Duration(v), nil
	case float64:
		return time.Duration(v), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to duration", value)
	}
}
