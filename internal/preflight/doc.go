// Package preflight validates the environment before a worker starts:
// encoder binaries on PATH, working directories writable, and enough free
// space to stage an encode.
package preflight
