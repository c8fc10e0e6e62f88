// Package config loads and merges sieve configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (SIEVE_FORMAT, SIEVE_FAIL_ON, SIEVE_WORKERS, etc.)
//  3. Config file ($XDG_CONFIG_HOME/sieve/config.json)
//  4. Built-in defaults
//
// The config file is decoded on top of the defaults, so a file only needs
// the keys it changes. Use [Load] to obtain a merged and validated
// [Config], [Save] to write one, and [SetField] to update a single key.
package config
