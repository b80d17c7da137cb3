// Package workflow models production workflow definitions: an ordered list of
// stages, the actions each stage requires, and the allowed-next transition
// graph between stages.
//
// Definitions are read-only input to the transition engine. They arrive either
// as TOML files from the configured definitions directory or over the API, and
// are persisted as JSON by the tracking store. Validation enforces the
// structural invariants the engine depends on: unique stage ids, unique orders
// (which define the sequence), and a transition graph that only references
// stages inside the same workflow.
package workflow
