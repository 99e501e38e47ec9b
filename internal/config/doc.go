// Package config handles configuration loading with environment variable substitution.
//
// Files ending in .toml are parsed as TOML, everything else as YAML. Both
// formats support ${VAR} syntax for environment variable interpolation.
package config
