// Package scanner records scan attempts as immutable audit rows and gates
// them behind a best-effort per-user rate limit. Every admitted attempt is
// persisted, including failures, so the audit trail stays complete even for
// rejected stage transitions.
package scanner
