package halyard

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// validateStruct walks a struct and validates all fields according to their
// `conf` tags, recursing into nested structs. Returns every FieldError found.
func validateStruct(cfg reflect.Value) []FieldError {
	return validateStructRecursive(cfg, "")
}

func validateStructRecursive(cfg reflect.Value, parentPath string) []FieldError {
	var fieldErrors []FieldError

	if cfg.Kind() == reflect.Ptr {
		if cfg.IsNil() {
			return nil
		}
		cfg = cfg.Elem()
	}
	if cfg.Kind() != reflect.Struct {
		return nil
	}

	t := cfg.Type()
	for i := 0; i < cfg.NumField(); i++ {
		field := t.Field(i)
		fieldValue := cfg.Field(i)

		if !field.IsExported() {
			continue
		}

		fieldPath := field.Name
		if parentPath != "" {
			fieldPath = parentPath + "." + field.Name
		}

		tag := parseTag(field.Tag.Get("conf"))

		// Optional[T]: validate the inner value only when set.
		if isOptionalType(fieldValue.Type()) {
			if fieldValue.Field(1).Bool() {
				fieldErrors = append(fieldErrors, validateField(fieldValue.Field(0), fieldPath, tag)...)
			}
			continue
		}

		if fieldValue.Kind() == reflect.Struct && fieldValue.Type().PkgPath() != "time" {
			fieldErrors = append(fieldErrors, validateStructRecursive(fieldValue, fieldPath)...)
			continue
		}

		fieldErrors = append(fieldErrors, validateField(fieldValue, fieldPath, tag)...)
	}

	return fieldErrors
}

// validateField checks a single value against the required, min, max, and
// oneof constraints of its tag.
func validateField(fieldValue reflect.Value, fieldPath string, tag tagConfig) []FieldError {
	if isZeroValue(fieldValue) {
		if tag.required {
			return []FieldError{{
				FieldPath: fieldPath,
				Code:      ErrCodeRequired,
				Message:   "field is required but not provided",
			}}
		}
		// Zero values of non-required fields skip range checks.
		return nil
	}

	var errs []FieldError
	errs = append(errs, validateRange(fieldValue, fieldPath, tag)...)
	if len(tag.oneof) > 0 {
		errs = append(errs, validateOneof(fieldValue, fieldPath, tag)...)
	}
	return errs
}

// validateRange enforces min/max: numeric bounds for numbers, length bounds
// for strings.
func validateRange(fieldValue reflect.Value, fieldPath string, tag tagConfig) []FieldError {
	if tag.min == "" && tag.max == "" {
		return nil
	}

	var errs []FieldError
	check := func(code, bound string, failed bool, msg string) {
		if bound != "" && failed {
			errs = append(errs, FieldError{FieldPath: fieldPath, Code: code, Message: msg})
		}
	}

	switch fieldValue.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := fieldValue.Int()
		minVal, minErr := strconv.ParseInt(tag.min, 10, 64)
		maxVal, maxErr := strconv.ParseInt(tag.max, 10, 64)
		check(ErrCodeMin, tag.min, minErr == nil && v < minVal,
			fmt.Sprintf("value %d is below minimum %d", v, minVal))
		check(ErrCodeMax, tag.max, maxErr == nil && v > maxVal,
			fmt.Sprintf("value %d exceeds maximum %d", v, maxVal))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := fieldValue.Uint()
		minVal, minErr := strconv.ParseUint(tag.min, 10, 64)
		maxVal, maxErr := strconv.ParseUint(tag.max, 10, 64)
		check(ErrCodeMin, tag.min, minErr == nil && v < minVal,
			fmt.Sprintf("value %d is below minimum %d", v, minVal))
		check(ErrCodeMax, tag.max, maxErr == nil && v > maxVal,
			fmt.Sprintf("value %d exceeds maximum %d", v, maxVal))

	case reflect.Float32, reflect.Float64:
		v := fieldValue.Float()
		minVal, minErr := strconv.ParseFloat(tag.min, 64)
		maxVal, maxErr := strconv.ParseFloat(tag.max, 64)
		check(ErrCodeMin, tag.min, minErr == nil && v < minVal,
			fmt.Sprintf("value %g is below minimum %g", v, minVal))
		check(ErrCodeMax, tag.max, maxErr == nil && v > maxVal,
			fmt.Sprintf("value %g exceeds maximum %g", v, maxVal))

	case reflect.String:
		length := len(fieldValue.String())
		minLen, minErr := strconv.Atoi(tag.min)
		maxLen, maxErr := strconv.Atoi(tag.max)
		check(ErrCodeMin, tag.min, minErr == nil && length < minLen,
			fmt.Sprintf("string length %d is below minimum %d", length, minLen))
		check(ErrCodeMax, tag.max, maxErr == nil && length > maxLen,
			fmt.Sprintf("string length %d exceeds maximum %d", length, maxLen))
	}

	return errs
}

// validateOneof checks that the value is among the allowed options.
func validateOneof(fieldValue reflect.Value, fieldPath string, tag tagConfig) []FieldError {
	var valueStr string
	switch fieldValue.Kind() {
	case reflect.String:
		valueStr = fieldValue.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		valueStr = strconv.FormatInt(fieldValue.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		valueStr = strconv.FormatUint(fieldValue.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		valueStr = strconv.FormatFloat(fieldValue.Float(), 'f', -1, 64)
	case reflect.Bool:
		valueStr = strconv.FormatBool(fieldValue.Bool())
	default:
		return nil
	}

	for _, allowed := range tag.oneof {
		if valueStr == allowed {
			return nil
		}
	}

	return []FieldError{{
		FieldPath: fieldPath,
		Code:      ErrCodeOneOf,
		Message:   fmt.Sprintf("value %q must be one of: %s", valueStr, strings.Join(tag.oneof, ", ")),
	}}
}

// isZeroValue checks if a reflect.Value is the zero value for its type.
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}
