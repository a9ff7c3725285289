// Package sourcedotenv loads configuration from .env files without touching
// the process environment. Parsing is delegated to github.com/joho/godotenv;
// keys are normalized the same way sourceenv normalizes variable names.
//
// Example:
//
//	source := sourcedotenv.New(".env", sourcedotenv.Options{})
//	loader := halyard.NewLoader[Config]().WithSource(source)
package sourcedotenv
