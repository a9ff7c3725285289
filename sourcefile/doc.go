// Package sourcefile loads configuration from YAML, JSON, or TOML files.
//
// Format is auto-detected from the extension (.yaml, .yml, .json, .toml).
// The package doubles as the document loader used by sourcesecret: Read
// returns the parsed value tree without flattening.
//
// Example:
//
//	source := sourcefile.New("config.yaml", sourcefile.Options{Required: true})
//	loader := halyard.NewLoader[Config]().WithSource(source)
package sourcefile
