// Package tracking persists production tracking state in SQLite and exposes
// the storage operations the transition engine builds on.
//
// The Store owns six tables: workflow definitions, live items, the live item
// history ledger, completed items, the completed item ledger, and the scan
// audit log. Live and completed storage are deliberately disjoint: a business
// item id exists in exactly one of the two at any time, and archival is a
// one-way, one-transaction migration (see Archive). The live ledger is keyed
// by the internal item row id; the completed ledger is keyed by the business
// item id because the live row is deleted on archival.
//
// Treat this package as the single source of truth for storage semantics;
// schema changes bump schemaVersion in schema.go and require recreating the
// database.
package tracking
