// Package profile defines the compression profile catalog: named bundles of
// encode parameters (scale factor, frame rate, frame stride, bitrates) that
// trade processing speed against output quality. Adding a profile is a data
// change; the pipeline itself is generic over the catalog.
package profile
