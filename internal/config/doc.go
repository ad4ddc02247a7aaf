// Package config holds the bridge's startup configuration.
//
// The effective configuration is built in three layers: compiled-in
// defaults, an optional YAML file, and environment overrides. Provider
// credentials only ever come from the environment so they cannot end up
// in a config file by accident.
package config
