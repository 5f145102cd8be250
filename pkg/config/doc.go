// Package config provides configuration management for the Scriptorium application.
//
// Configuration is loaded from environment variables with sensible defaults.
// The package supports:
//   - Server host, port and CORS origins
//   - The workspace base directory and its optional overrides
//   - Provider credentials used to seed the persisted settings store
//   - An optional API key protecting the mutating endpoints
//
// All configuration values are validated during startup to ensure
// the application has the required settings to function properly.
package config
