// Package pipeline is the top-level compression entry point. An Orchestrator
// probes the source, short-circuits via pass-through when the asset already
// meets the target size, and otherwise drives one profile-parametrized
// decode, sample, render, and encode run to a Result record.
package pipeline
