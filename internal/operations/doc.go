// Package operations orchestrates pipeline runs: loading a raw snapshot,
// cleaning it, aggregating summaries, exporting the output tables, and
// publishing the refreshed dataset to the serving layer.
//
// A run executes its steps strictly in order; a step failure marks the
// remaining steps skipped and fails the run. The Manager enforces a single
// active run at a time and keeps a bounded history of finished runs for the
// status API. Progress is pushed to registered listeners as the run
// advances, which is how WebSocket subscribers see live updates.
package operations
