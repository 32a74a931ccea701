// Package config loads, normalizes, and validates pressbox configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI and worker need: staging and output directories, ffmpeg tool locations,
// pipeline tuning, and the asset-store sink.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
