// Package rollback implements the server-authoritative reconciliation core.
//
// When an authoritative snapshot arrives from the server for a past tick,
// the client's locally-predicted state from that tick onward is suspect.
// The reconciler rewinds: it restores state at the corrected tick
// (authoritative values from the server, predicted values from history),
// then replays the simulation tick by tick back to the present, re-running
// the host's step function with the same buffered inputs each tick consumed
// the first time. Replay is deterministic by construction: given identical
// starting state and inputs, the step function must reproduce identical
// results, so resimulation is equivalent to deterministic replay, not an
// approximation.
//
// ARCHITECTURE:
//
// Single owner, no locks:
// Everything runs on the goroutine driving the host's fixed-timestep loop.
// Normal stepping and reconciliation passes are mutually exclusive within a
// scheduling tick, so shared structures (history buffer, live component
// state) have exactly one logical owner at a time.
//
// Reconciliation flow:
//  1. ApplyCorrection merges server values into history at the corrected
//     tick and arms the earliest outstanding target.
//  2. Reconcile clamps the target to the retention horizon, restores state
//     at the target, and invokes the host step function once per tick from
//     target+1 to the pre-correction current tick.
//  3. Each resimulated tick overwrites the history entry that held the
//     invalidated prediction.
//  4. Corrections arriving mid-pass re-arm the target; the pass restarts
//     from the earliest outstanding tick so a late-but-older correction is
//     never under-corrected.
//
// Component classification decides what the server can overwrite: values
// registered Authoritative come down in corrections, values registered
// Predicted are recomputed locally and never handed down. The registry is
// built once at startup and sealed when the reconciler takes ownership.
package rollback
