// Package config loads, normalizes, and validates tunefetch configuration.
//
// Configuration is TOML. Load searches an explicit path first, then
// ~/.config/tunefetch/config.toml, then ./tunefetch.toml, and falls back to
// Default when none exists. Paths are tilde-expanded and made absolute, tool
// names default to their PATH lookups, and the ntfy topic may come from the
// TUNEFETCH_NTFY_TOPIC environment variable.
package config
