package halyard

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		want tagConfig
	}{
		{
			name: "empty tag",
			tag:  "",
			want: tagConfig{},
		},
		{
			name: "simple directives",
			tag:  "required,min:1,max:100",
			want: tagConfig{required: true, min: "1", max: "100"},
		},
		{
			name: "default and env",
			tag:  "default:8080,env:APP_PORT",
			want: tagConfig{defValue: "8080", hasDefault: true, env: "APP_PORT"},
		},
		{
			name: "oneof with commas",
			tag:  "default:info,oneof:debug,info,warn,error",
			want: tagConfig{defValue: "info", hasDefault: true, oneof: []string{"debug", "info", "warn", "error"}},
		},
		{
			name: "oneof followed by directive",
			tag:  "oneof:a,b,required",
			want: tagConfig{oneof: []string{"a", "b"}, required: true},
		},
		{
			name: "boolean false",
			tag:  "required:false,secret:false",
			want: tagConfig{},
		},
		{
			name: "secret and name",
			tag:  "secret,name:db.password",
			want: tagConfig{secret: true, name: "db.password"},
		},
		{
			name: "prefix",
			tag:  "prefix:database",
			want: tagConfig{prefix: "database"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTag(tt.tag))
		})
	}
}

func TestConvertValue(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		target any // zero value of the target type
		want   any
	}{
		{"string passthrough", "hello", "", "hello"},
		{"int from string", "42", int(0), 42},
		{"int from float64", float64(42), int(0), 42}, // JSON numbers
		{"int64 from int", 42, int64(0), int64(42)},
		{"uint from string", "7", uint(0), uint(7)},
		{"float from string", "3.14", float64(0), 3.14},
		{"bool from string", "true", false, true},
		{"bool passthrough", true, false, true},
		{"duration from string", "5s", time.Duration(0), 5 * time.Second},
		{"string slice from list", []any{"a", "b"}, []string(nil), []string{"a", "b"}},
		{"string slice from csv", "a, b,c", []string(nil), []string{"a", "b", "c"}},
		{"int slice from list", []any{1, 2}, []int(nil), []int{1, 2}},
		{"stringified number", 42, "", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertValue(tt.value, reflect.TypeOf(tt.target))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Interface())
		})
	}
}

func TestConvertValue_Time(t *testing.T) {
	got, err := convertValue("2024-06-01T12:00:00Z", timeType)
	require.NoError(t, err)
	want, _ := time.Parse(time.RFC3339, "2024-06-01T12:00:00Z")
	assert.Equal(t, want, got.Interface())
}

func TestConvertValue_Errors(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		target any
	}{
		{"garbage int", "not-a-number", int(0)},
		{"garbage bool", "maybe", false},
		{"garbage duration", "fast", time.Duration(0)},
		{"overflow int8", "1000", int8(0)},
		{"negative uint", "-1", uint(0)},
		{"map to int", map[string]any{}, int(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convertValue(tt.value, reflect.TypeOf(tt.target))
			assert.Error(t, err)
		})
	}
}

func TestBindStruct_NestedAndTags(t *testing.T) {
	type pool struct {
		Max int `conf:"default:10"`
	}
	type database struct {
		Host     string
		Password string `conf:"secret"`
		Pool     pool
	}
	type config struct {
		Name     string   `conf:"name:app.name"`
		Database database `conf:"prefix:db"`
	}

	data := map[string]mergedEntry{
		"app.name":    {value: "myapp", origin: "file:app.yaml"},
		"db.host":     {value: "db.local", origin: "file:app.yaml"},
		"db.password": {value: "hunter2", origin: "secret:db:/run/secrets/db.json"},
	}

	var cfg config
	var prov []FieldProvenance
	errs := bindStruct(reflect.ValueOf(&cfg).Elem(), data, &prov, "", "")
	require.Empty(t, errs)

	assert.Equal(t, "myapp", cfg.Name)
	assert.Equal(t, "db.local", cfg.Database.Host)
	assert.Equal(t, "hunter2", cfg.Database.Password)
	assert.Equal(t, 10, cfg.Database.Pool.Max)

	byField := make(map[string]FieldProvenance)
	for _, p := range prov {
		byField[p.FieldPath] = p
	}
	assert.Equal(t, "secret:db:/run/secrets/db.json", byField["Database.Password"].SourceName)
	assert.True(t, byField["Database.Password"].Secret)
	assert.Equal(t, "default", byField["Database.Pool.Max"].SourceName)
}

func TestBindStruct_EnvOverride(t *testing.T) {
	type config struct {
		Port int `conf:"env:BINDTEST_PORT,default:8080"`
	}

	t.Setenv("BINDTEST_PORT", "9999")

	var cfg config
	var prov []FieldProvenance
	errs := bindStruct(reflect.ValueOf(&cfg).Elem(), map[string]mergedEntry{
		"port": {value: 1234, origin: "file:app.yaml"},
	}, &prov, "", "")
	require.Empty(t, errs)

	assert.Equal(t, 9999, cfg.Port)
	require.Len(t, prov, 1)
	assert.Equal(t, "env:BINDTEST_PORT", prov[0].SourceName)
}

func TestBindStruct_Optional(t *testing.T) {
	type config struct {
		RateLimit Optional[int]
		Tracing   Optional[bool]
	}

	var cfg config
	var prov []FieldProvenance
	errs := bindStruct(reflect.ValueOf(&cfg).Elem(), map[string]mergedEntry{
		"ratelimit": {value: "100", origin: "env:RATELIMIT"},
	}, &prov, "", "")
	require.Empty(t, errs)

	v, ok := cfg.RateLimit.Get()
	assert.True(t, ok)
	assert.Equal(t, 100, v)

	_, ok = cfg.Tracing.Get()
	assert.False(t, ok, "unset Optional must stay unset")
	assert.True(t, cfg.Tracing.OrDefault(true))
}

func TestBindStruct_TypeErrorReported(t *testing.T) {
	type config struct {
		Port int
	}

	var cfg config
	var prov []FieldProvenance
	errs := bindStruct(reflect.ValueOf(&cfg).Elem(), map[string]mergedEntry{
		"port": {value: "not-a-port", origin: "env:PORT"},
	}, &prov, "", "")

	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeInvalidType, errs[0].Code)
	assert.Equal(t, "Port", errs[0].FieldPath)
}

func TestIsOptionalType(t *testing.T) {
	assert.True(t, isOptionalType(reflect.TypeOf(Optional[int]{})))
	assert.True(t, isOptionalType(reflect.TypeOf(Optional[string]{})))
	assert.False(t, isOptionalType(reflect.TypeOf(time.Time{})))
	assert.False(t, isOptionalType(reflect.TypeOf(struct{ Value, Set bool }{})))
}
