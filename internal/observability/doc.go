// Package observability exposes the daemon's Prometheus metrics: scan
// attempts, stage transitions, rejected transitions, and archivals. All
// recording helpers are nil-safe so components can run without metrics in
// tests.
package observability
