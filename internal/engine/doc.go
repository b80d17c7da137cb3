// Package engine implements the stage transition rules for tracked items.
//
// Items move through a workflow's ordered stages in two ways: a direct
// advance validated against the stage transition graph, and a scan-gated
// completion where a physical scan must match the item's current stage before
// the stage closes. Completing the final stage hands the item to the archival
// path, which migrates it and its ledger into the completed store in one
// transaction.
package engine
