// Package halyard provides layered configuration loading with typed binding,
// validation, and per-field provenance tracking.
//
// Configuration comes from pluggable sources (files, environment variables,
// .env files, secret-file pointers) that are merged in order, later sources
// overriding earlier ones:
//
//	type Config struct {
//	    Port int    `conf:"default:8080,min:1024"`
//	    Host string `conf:"required"`
//	}
//
//	loader := halyard.NewLoader[Config]().
//	    WithSource(sourcefile.New("config.yaml", sourcefile.Options{})).
//	    WithSource(sourcesecret.New(sourcesecret.Options{Prefix: "APP"}))
//
//	cfg, err := loader.Load(context.Background())
//
// Tag directives: env:VAR, default:val, required, min:N, max:N, oneof:a,b,c,
// secret, prefix:path, name:path
//
// Fields tagged secret are redacted by DumpEffective and tracked as such in
// provenance.
package halyard
