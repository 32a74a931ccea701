// Package workflow runs compression jobs from the persistent store. Manager
// is the bounded worker pool draining the queue; Remote is the client side of
// the same contract, delegating a request through the store and polling it to
// a Result.
package workflow
