// Package journal provides SQLite-backed durable storage for reconciliation
// event streams.
//
// The journal implements an append-only log with:
//   - Runs: one recorded simulation session each
//   - Corrections: authoritative updates as they were accepted or dropped
//   - Passes: completed rewind-and-replay passes
//
// All ordering uses seq INTEGER (a per-run logical clock), never timestamps,
// so a recorded stream reads back in exactly the order the reconciler
// processed it. Component lists are stored as RFC 8785 canonical JSON and
// correction payloads are identified by their canonical hash, which lets two
// journals be diffed by value.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
