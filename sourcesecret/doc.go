// Package sourcesecret loads configuration from files pointed at by
// environment variables, keeping secret material (credentials, certificates,
// nested config blocks) out of source control while presenting it as ordinary
// nested configuration keys.
//
// A variable matches when its name carries the configured suffix (default
// "FILE") and, if one is set, the configured prefix. The variable's value is
// a path to a YAML, JSON, or TOML file whose parsed content is attached
// beneath the key derived from the variable name:
//
//	APP_DATABASE_FILE=/run/secrets/db.yaml   (Prefix: "APP")
//	  → key "database" holds the file's parsed tree
//
// A variable whose whole name equals the pattern (e.g. APP_FILE) merges the
// file's top-level keys directly instead of nesting them.
//
// Example:
//
//	source := sourcesecret.New(sourcesecret.Options{Prefix: "APP", Separator: "_"})
//	loader := halyard.NewLoader[Config]().WithSource(source)
package sourcesecret
