// Package services defines the shared error taxonomy and context annotations
// used by the compression pipeline stages.
//
// Stage code wraps failures with Wrap so callers receive a StageError naming
// the failing stage and tagged with a sentinel marker (unreadable source,
// no supported codec, encode failed, cancelled, profile not found). Context
// helpers carry job and correlation identifiers into structured logs.
package services
