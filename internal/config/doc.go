// Package config provides the YAML configuration surface of spiegel.
// It defines the auth and crawler section structures, fills in defaults
// and validates every section eagerly before any crawler starts.
package config
