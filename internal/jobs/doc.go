// Package jobs persists compression requests in SQLite so the pipeline can
// run server-assisted: callers enqueue a job, a worker claims and runs it,
// and clients poll the stored status, progress, and result.
//
// The schema lives in schema.sql; bump schemaVersion when it changes.
package jobs
