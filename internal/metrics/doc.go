// Package metrics derives compression outcome measurements: size ratio,
// wall-clock duration, and throughput relative to a reference baseline.
package metrics
