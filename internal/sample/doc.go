// Package sample implements the frame sampler and render stage: a decode
// stream walking the source timeline at the profile's frame rate, and a
// strided loop that draws sampled frames into the pipeline's raster buffer
// while holding the previous raster on intermediate ticks.
package sample
