// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs for
// daemon control, item queries, completed-item queries, scan statistics, and
// workflow registration.
package ipc
