// Package probe wraps ffprobe inspection of source video assets. It extracts
// the duration, native resolution, container size, and audio presence the
// pipeline needs for planning, under a bounded timeout so corrupt sources
// fail fast instead of hanging.
package probe
