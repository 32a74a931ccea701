// Command pressbox is the CLI for the adaptive video compression pipeline:
// one-shot compression, source inspection, thumbnail extraction, and the
// queue-backed worker pool.
package main
