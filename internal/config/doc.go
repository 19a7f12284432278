// Package config loads and watches the service configuration.
//
// Configuration is YAML with environment variable substitution:
// ${VAR} expands to the variable's value, ${VAR:-default} falls back
// to the default when the variable is unset, and $$ escapes a literal
// dollar sign. An optional .env file is loaded before substitution.
//
// The Watcher reloads the file on change so settings like the log
// level can be retuned without a restart.
package config
