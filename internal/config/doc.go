// Package config loads, normalizes, and validates Scribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a working-directory .env file, and
// honours environment fallbacks such as CURSOR_API_KEY and CURSOR_REPOSITORY.
// The Config type centralizes every knob the CLI needs: API connection and
// polling cadence, generation strategy order, data/log directories, and
// notification settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical strategy names, and clear validation errors.
package config
