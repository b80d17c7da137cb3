// Package config loads, normalizes, and validates TOML configuration for the
// groovy daemon and CLI.
//
// Configuration resolution order is an explicit --config path, then
// ~/.config/groovy/config.toml, then a groovy.toml in the working directory.
// Missing files fall back to defaults so the daemon can run unconfigured in
// development. All path fields are expanded (including ~) and made absolute
// during load.
package config
