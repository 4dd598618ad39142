// Package config handles configuration loading, parsing, and validation
// from defaults, an optional config.yaml and TRIALHUB_ environment variables.
// It provides type-safe access to application settings needed by different
// components while keeping configuration details separate from business logic.
package config
