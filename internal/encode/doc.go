// Package encode owns the encoder session: codec negotiation against the
// local ffmpeg build's capability list, the incremental raster-to-container
// encode over the child process's stdin, and the optional audio track merge
// re-synchronized to the capture clock.
//
// Sessions are single-use, owned by one pipeline, and never silently fall
// back: an unsupported preference list fails with ErrNoSupportedCodec, and
// every failure or abort path removes partial output before surfacing.
package encode
