// Package api defines the transport DTOs shared by the HTTP server, the IPC
// surface, and the CLI, plus thin read services that translate store records
// into those DTOs.
package api
