package halyard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Empty(t *testing.T) {
	err := &ValidationError{}
	assert.Equal(t, "config validation failed: no errors", err.Error())
}

func TestValidationError_Single(t *testing.T) {
	err := &ValidationError{FieldErrors: []FieldError{
		{FieldPath: "Database.Host", Code: ErrCodeRequired, Message: "field is required but not provided"},
	}}

	msg := err.Error()
	assert.Contains(t, msg, "config validation failed: 1 error")
	assert.Contains(t, msg, "Database.Host: required")
	assert.False(t, strings.HasSuffix(msg, "\n"))
}

func TestValidationError_Multiple(t *testing.T) {
	err := &ValidationError{FieldErrors: []FieldError{
		{FieldPath: "Port", Code: ErrCodeMin, Message: "value 80 is below minimum 1024"},
		{FieldPath: "Level", Code: ErrCodeOneOf, Message: `value "verbose" must be one of: debug, info`},
	}}

	msg := err.Error()
	assert.Contains(t, msg, "config validation failed: 2 errors")
	assert.Contains(t, msg, "Port: min")
	assert.Contains(t, msg, "Level: oneof")
}
