package sourcefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSource_Load_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
database:
  host: localhost
  port: 5432
  credentials:
    user: admin
    password: secret
server:
  address: 0.0.0.0
  timeout: 30
features:
  - feature1
  - feature2
`)

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "localhost", data["database.host"])
	assert.Equal(t, 5432, data["database.port"])
	assert.Equal(t, "admin", data["database.credentials.user"])
	assert.Equal(t, "secret", data["database.credentials.password"])
	assert.Equal(t, "0.0.0.0", data["server.address"])
	assert.Equal(t, 30, data["server.timeout"])

	features, ok := data["features"].([]any)
	require.True(t, ok, "lists are preserved as leaves")
	assert.Len(t, features, 2)
}

func TestFileSource_Load_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "database": {"host": "db.example.com", "port": 3306},
  "api": {"key": "secret-key", "endpoint": "https://api.example.com"}
}`)

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "db.example.com", data["database.host"])
	assert.Equal(t, float64(3306), data["database.port"]) // JSON numbers are float64
	assert.Equal(t, "secret-key", data["api.key"])
	assert.Equal(t, "https://api.example.com", data["api.endpoint"])
}

func TestFileSource_Load_TOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[database]
host = "localhost"
port = 5432

[database.pool]
max_connections = 100

[server]
address = "127.0.0.1"
`)

	src := New(path, Options{})
	data, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "localhost", data["database.host"])
	assert.Equal(t, int64(5432), data["database.port"])
	assert.Equal(t, int64(100), data["database.pool.max_connections"])
	assert.Equal(t, "127.0.0.1", data["server.address"])
}

func TestFileSource_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	t.Run("optional returns empty map", func(t *testing.T) {
		src := New(missing, Options{})
		data, err := src.Load(context.Background())
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("required returns error", func(t *testing.T) {
		src := New(missing, Options{Required: true})
		_, err := src.Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required config file not found")
	})
}

func TestFileSource_MalformedFile(t *testing.T) {
	path := writeFile(t, "config.json", `{broken`)

	src := New(path, Options{})
	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse JSON")
}

func TestFileSource_UnsupportedFormat(t *testing.T) {
	path := writeFile(t, "config.ini", "key=value")

	src := New(path, Options{})
	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format")
}

func TestFileSource_ForcedFormat(t *testing.T) {
	// YAML content in a file without a telling extension.
	path := writeFile(t, "config.conf", "host: localhost")

	src := New(path, Options{Format: "yaml"})
	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "localhost", data["host"])
}

func TestRead_ReturnsNestedTree(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  host: 0.0.0.0
  port: 5000
`)

	tree, err := Read(path, "")
	require.NoError(t, err)

	server, ok := tree["server"].(map[string]any)
	require.True(t, ok, "Read must not flatten")
	assert.Equal(t, "0.0.0.0", server["host"])
	assert.Equal(t, 5000, server["port"])
}

func TestFileSource_LoadWithOrigins(t *testing.T) {
	path := writeFile(t, "app.yaml", "host: localhost")

	src := New(path, Options{}).(interface {
		LoadWithOrigins(context.Context) (map[string]any, map[string]string, error)
	})

	data, origins, err := src.LoadWithOrigins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "localhost", data["host"])
	assert.Equal(t, "file:app.yaml", origins["host"])
}

func TestFileSource_Name(t *testing.T) {
	src := New("/etc/app/config.yaml", Options{})
	assert.Equal(t, "file:config.yaml", src.Name())
}

func TestFileSource_Watch(t *testing.T) {
	path := writeFile(t, "config.yaml", "host: localhost")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := New(path, Options{})
	ch, err := src.Watch(ctx)
	require.NoError(t, err)

	// Give the watcher a moment to attach before mutating the file.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("host: updated"), 0o644))

	select {
	case event, ok := <-ch:
		require.True(t, ok)
		assert.Contains(t, event.Cause, "file-changed")
	case <-time.After(5 * time.Second):
		t.Fatal("no change event after file write")
	}
}
