// Package daemon hosts the long-running groovyd process: single-instance
// locking, the HTTP API, and wiring between the transition engine, scan
// logger, and tracking store.
package daemon
