package halyard

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"
)

// Redacted replaces secret field values in dump output.
const Redacted = "***redacted***"

// DumpOption configures dump behavior.
type DumpOption func(*dumpConfig)

type dumpConfig struct {
	withSources bool   // Include source attribution for each field
	asJSON      bool   // Output as JSON instead of text
	indent      string // Indentation for JSON output
}

// WithSources includes source attribution for each field in the output.
func WithSources() DumpOption {
	return func(cfg *dumpConfig) { cfg.withSources = true }
}

// AsJSON outputs configuration as JSON instead of text format.
func AsJSON() DumpOption {
	return func(cfg *dumpConfig) { cfg.asJSON = true }
}

// WithIndent sets the indentation for JSON output. Default is two spaces.
func WithIndent(indent string) DumpOption {
	return func(cfg *dumpConfig) { cfg.indent = indent }
}

// DumpEffective writes a human-readable representation of the configuration.
// Fields tagged secret are redacted. Returns an error if writing fails.
func DumpEffective[T any](w io.Writer, cfg *T, opts ...DumpOption) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	config := dumpConfig{indent: "  "}
	for _, opt := range opts {
		opt(&config)
	}

	// Provenance drives secret detection and source attribution.
	provenanceMap := make(map[string]*FieldProvenance)
	if prov, ok := GetProvenance(cfg); ok {
		for i := range prov.Fields {
			provenanceMap[prov.Fields[i].FieldPath] = &prov.Fields[i]
		}
	}

	v := reflect.ValueOf(cfg).Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("config must be a struct or pointer to struct")
	}

	if config.asJSON {
		tree := buildDumpTree(v, "", provenanceMap)
		data, err := json.MarshalIndent(tree, "", config.indent)
		if err != nil {
			return fmt.Errorf("json marshal error: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write error: %w", err)
		}
		return nil
	}

	for _, field := range collectDumpFields(v, "", "", provenanceMap) {
		line := fmt.Sprintf("%s: %s", field.keyPath, field.display)
		if config.withSources && field.source != "" {
			line += fmt.Sprintf(" (source: %s)", field.source)
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("write error: %w", err)
		}
	}
	return nil
}

// dumpField is one leaf field prepared for text output.
type dumpField struct {
	keyPath string
	display string
	source  string
}

// collectDumpFields walks the struct, producing one entry per leaf field.
// fieldPrefix tracks the Go field path for provenance lookup, keyPrefix the
// configuration key path for display.
func collectDumpFields(v reflect.Value, fieldPrefix, keyPrefix string, provenanceMap map[string]*FieldProvenance) []dumpField {
	var fields []dumpField

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
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
		prov := provenanceMap[fieldPath]
		keyPath := dumpKeyPath(field.Name, tag, keyPrefix, prov)

		if isOptionalType(field.Type) {
			display := "<not set>"
			if fieldValue.Field(1).Bool() {
				display = formatDumpValue(fieldValue.Field(0), prov)
			}
			fields = append(fields, dumpField{keyPath: keyPath, display: display, source: provSource(prov)})
			continue
		}

		if fieldValue.Kind() == reflect.Struct && field.Type != timeType {
			nestedPrefix := keyPath
			if tag.prefix != "" {
				nestedPrefix = tag.prefix
			}
			fields = append(fields, collectDumpFields(fieldValue, fieldPath, nestedPrefix, provenanceMap)...)
			continue
		}

		fields = append(fields, dumpField{
			keyPath: keyPath,
			display: formatDumpValue(fieldValue, prov),
			source:  provSource(prov),
		})
	}

	return fields
}

// buildDumpTree builds the nested map used for JSON output.
func buildDumpTree(v reflect.Value, fieldPrefix string, provenanceMap map[string]*FieldProvenance) map[string]any {
	result := make(map[string]any)

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
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
		prov := provenanceMap[fieldPath]

		jsonKey := strings.ToLower(field.Name)
		if tag.name != "" {
			parts := strings.Split(tag.name, ".")
			jsonKey = parts[len(parts)-1]
		}

		if isOptionalType(field.Type) {
			if fieldValue.Field(1).Bool() {
				result[jsonKey] = jsonDumpValue(fieldValue.Field(0), prov)
			} else {
				result[jsonKey] = nil
			}
			continue
		}

		if fieldValue.Kind() == reflect.Struct && field.Type != timeType {
			result[jsonKey] = buildDumpTree(fieldValue, fieldPath, provenanceMap)
			continue
		}

		result[jsonKey] = jsonDumpValue(fieldValue, prov)
	}

	return result
}

// dumpKeyPath picks the display key: provenance key path if recorded, else
// name: tag, else the lowercased field name under the current prefix.
func dumpKeyPath(fieldName string, tag tagConfig, keyPrefix string, prov *FieldProvenance) string {
	if prov != nil && prov.KeyPath != "" {
		return prov.KeyPath
	}
	if tag.name != "" {
		return tag.name
	}
	keyPath := strings.ToLower(fieldName)
	if keyPrefix != "" {
		keyPath = keyPrefix + "." + keyPath
	}
	return keyPath
}

// formatDumpValue renders a value for text output, redacting secrets.
func formatDumpValue(v reflect.Value, prov *FieldProvenance) string {
	if prov != nil && prov.Secret {
		return Redacted
	}
	if !v.IsValid() || (v.Kind() == reflect.Ptr && v.IsNil()) {
		return "<nil>"
	}

	switch v.Kind() {
	case reflect.String:
		return fmt.Sprintf("%q", v.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Type() == durationType {
			return v.Interface().(time.Duration).String()
		}
		return fmt.Sprintf("%d", v.Int())
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.String {
			strs := make([]string, v.Len())
			for i := 0; i < v.Len(); i++ {
				strs[i] = v.Index(i).String()
			}
			return fmt.Sprintf("[%s]", strings.Join(strs, ", "))
		}
		return fmt.Sprintf("%v", v.Interface())
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface().(time.Time).Format(time.RFC3339)
		}
		return fmt.Sprintf("%v", v.Interface())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// jsonDumpValue renders a value for JSON output, redacting secrets.
func jsonDumpValue(v reflect.Value, prov *FieldProvenance) any {
	if prov != nil && prov.Secret {
		return Redacted
	}
	if !v.IsValid() || (v.Kind() == reflect.Ptr && v.IsNil()) {
		return nil
	}
	if v.Type() == durationType {
		return v.Interface().(time.Duration).String()
	}
	if v.Type() == timeType {
		return v.Interface().(time.Time).Format(time.RFC3339)
	}
	return v.Interface()
}

func provSource(prov *FieldProvenance) string {
	if prov == nil {
		return ""
	}
	return prov.SourceName
}
