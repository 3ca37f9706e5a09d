package rollback

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/rewind/internal/canon"
	"github.com/roach88/rewind/internal/history"
	"github.com/roach88/rewind/internal/sim"
	"github.com/roach88/rewind/internal/tick"
)

// State identifies the reconciler's position in the rewind-and-replay
// protocol. The reconciler always returns to StateLive before control goes
// back to the host; the other states are only observable from inside a Step
// callback during a reconciliation pass.
type State uint8

const (
	// StateLive means no correction is pending; normal stepping.
	StateLive State = iota

	// StateRewinding means the reconciler is restoring state at the rewind
	// target.
	StateRewinding

	// StateResimulating means the reconciler is stepping forward from the
	// rewind target, replacing invalidated predictions.
	StateResimulating
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateRewinding:
		return "rewinding"
	case StateResimulating:
		return "resimulating"
	default:
		return "unknown"
	}
}

// Correction is an authoritative update delivered by the replication layer:
// server-owned component values for one entity at one tick. Arrival may be
// out of order or redundant; the reconciler tolerates both.
type Correction struct {
	Tick   tick.Tick
	Entity sim.EntityID

	// Values maps component names to authoritative values. Every name must
	// be registered; names classified Predicted are ignored with a warning,
	// because predicted state is recomputed, never handed down.
	Values map[string]any
}

// Recorder receives reconciliation events for post-hoc inspection. Calls
// are best effort: a failing recorder is logged and never interferes with
// reconciliation.
type Recorder interface {
	// Correction records an authoritative update as it is accepted or
	// dropped as stale.
	Correction(t tick.Tick, e sim.EntityID, components []string, hash string, stale bool) error

	// Pass records one completed reconciliation pass.
	Pass(requested, target tick.Tick, clamped bool, steps int) error
}

// Diagnostics counts degraded-but-functioning events. These conditions are
// handled by policy rather than surfaced as errors, so counters are the way
// to observe them.
type Diagnostics struct {
	// ClampedCorrections counts corrections older than the retention
	// horizon that were clamped to the oldest available tick.
	ClampedCorrections uint64 `json:"clamped_corrections"`

	// StaleCorrections counts duplicate corrections dropped as no-ops.
	StaleCorrections uint64 `json:"stale_corrections"`

	// Reconciliations counts completed reconciliation passes.
	Reconciliations uint64 `json:"reconciliations"`

	// ResimulatedTicks counts simulation steps re-run during replay.
	ResimulatedTicks uint64 `json:"resimulated_ticks"`

	// FastForwards counts corrections at or past the current tick that were
	// applied as the new present without replay.
	FastForwards uint64 `json:"fast_forwards"`
}

// Reconciler orchestrates the rewind-and-replay protocol.
//
// Single-threaded by design: reconciliation and resimulation execute
// synchronously within the host's scheduling phase and run to completion
// before control returns. The history buffer and live component state have
// exactly one logical owner at a time (normal stepping, or a reconciliation
// pass), so mutual exclusion is structural and no locking exists.
//
// Typical frame:
//
//	for each received server update {
//	    r.ApplyCorrection(update)
//	}
//	r.Reconcile()          // rewinds and replays if anything is pending
//	r.Step()               // simulate the next live tick
type Reconciler struct {
	registry *Registry
	hist     *history.Buffer // captured (predicted + live) snapshots
	auth     *history.Buffer // authoritative values received in corrections
	stepper  sim.Stepper
	log      *slog.Logger
	recorder Recorder

	start   tick.Tick
	current tick.Tick
	started bool
	state   State

	pending    tick.Tick // earliest outstanding correction target
	hasPending bool

	lastReconciled tick.Tick
	hasReconciled  bool

	entities []sim.EntityID // sorted for deterministic capture/restore order

	diag Diagnostics
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(r *Reconciler) {
		r.log = log
	}
}

// WithRecorder attaches a reconciliation recorder (e.g. the SQLite
// journal).
func WithRecorder(rec Recorder) Option {
	return func(r *Reconciler) {
		r.recorder = rec
	}
}

// WithStartTick sets the tick the first call to Step simulates.
// Defaults to 1.
func WithStartTick(t tick.Tick) Option {
	return func(r *Reconciler) {
		r.start = t
	}
}

// New creates a Reconciler over a sealed copy of the registry. capacity is
// the history depth in ticks; it bounds both the rewind horizon and input
// retention.
//
// The registry is sealed by this call: the classification is process-wide
// configuration, immutable once simulation starts.
func New(registry *Registry, stepper sim.Stepper, capacity int, opts ...Option) (*Reconciler, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, fmt.Errorf("rollback: registry has no registered components")
	}
	if stepper == nil {
		return nil, fmt.Errorf("rollback: stepper is required")
	}
	if capacity < 1 {
		return nil, fmt.Errorf("rollback: capacity must be >= 1, got %d", capacity)
	}

	registry.seal()
	r := &Reconciler{
		registry: registry,
		hist:     history.NewBuffer(capacity),
		auth:     history.NewBuffer(capacity),
		stepper:  stepper,
		log:      slog.Default(),
		start:    1,
		state:    StateLive,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Current returns the newest simulated tick. Zero until the first Step.
func (r *Reconciler) Current() tick.Tick {
	return r.current
}

// State returns the reconciler's state. Always StateLive between calls;
// Rewinding and Resimulating are visible only from inside Step callbacks.
func (r *Reconciler) State() State {
	return r.state
}

// Diagnostics returns a copy of the diagnostic counters.
func (r *Reconciler) Diagnostics() Diagnostics {
	return r.diag
}

// History exposes the underlying buffer for inspection.
func (r *Reconciler) History() *history.Buffer {
	return r.hist
}

// Track adds an entity to the reconciled set. Tracked entities are captured
// into history on every step and restored during rollback. Idempotent.
func (r *Reconciler) Track(e sim.EntityID) {
	i, found := slices.BinarySearch(r.entities, e)
	if found {
		return
	}
	r.entities = slices.Insert(r.entities, i, e)
}

// Forget removes an entity from the reconciled set. Its history entries age
// out naturally.
func (r *Reconciler) Forget(e sim.EntityID) {
	i, found := slices.BinarySearch(r.entities, e)
	if found {
		r.entities = slices.Delete(r.entities, i, i+1)
	}
}

// Step simulates the next live tick: runs the host step function once and
// records the resulting component snapshots into history.
func (r *Reconciler) Step() error {
	if r.state != StateLive {
		return fmt.Errorf("rollback: Step called during a reconciliation pass (state=%s)", r.state)
	}

	var next tick.Tick
	if !r.started {
		next = r.start
	} else {
		next = r.current.Next()
	}
	r.stepper.Step(next)
	r.started = true
	r.current = next
	return r.capture(next)
}

// ApplyCorrection ingests an authoritative update for a tick. The values
// are merged into history at that tick, and a reconciliation pass is armed
// for the next Reconcile call. A duplicate correction for an
// already-reconciled tick with no differing value is dropped as a no-op.
//
// Returns an error only for programming errors: unregistered component
// names or values the canonical encoder cannot represent.
func (r *Reconciler) ApplyCorrection(c Correction) error {
	authoritative := make(map[string]any, len(c.Values))
	for name, v := range c.Values {
		reg, ok := r.registry.Lookup(name)
		if !ok {
			return NewUnregisteredComponentError(name)
		}
		if reg.Kind != KindAuthoritative {
			// The server's correction applies only to authoritative truth;
			// predicted fields are recomputed by resimulation
			r.log.Warn("ignoring correction value for predicted component",
				"component", name, "tick", c.Tick, "entity", c.Entity)
			continue
		}
		authoritative[name] = v
	}
	if len(authoritative) == 0 {
		return nil
	}

	names := sortedNames(authoritative)
	hash, err := canon.Hash(authoritative)
	if err != nil {
		return fmt.Errorf("rollback: correction for %s not hashable: %w", c.Tick, err)
	}

	if r.isStale(c, authoritative, hash) {
		r.diag.StaleCorrections++
		r.log.Debug("dropping stale correction",
			"tick", c.Tick, "entity", c.Entity, "last_reconciled", r.lastReconciled)
		r.record(func(rec Recorder) error {
			return rec.Correction(c.Tick, c.Entity, names, hash, true)
		})
		return nil
	}

	r.Track(c.Entity)

	// Authoritative values live in their own buffer, separate from captured
	// predictions. Resimulation overwrites captured history tick by tick,
	// and a correction for a tick inside the replayed range must survive
	// that overwrite so the replay re-applies it when it passes through.
	merged := make(history.Snapshot, len(authoritative))
	if snap, ok := r.auth.Lookup(c.Entity, c.Tick); ok {
		merged = snap.Clone()
	}
	for name, v := range authoritative {
		merged[name] = v
	}
	if err := r.auth.Record(c.Entity, c.Tick, merged); err != nil {
		// Older than the retention window; the pass below clamps to the
		// oldest retained tick instead
		r.log.Debug("correction outside retention window", "tick", c.Tick, "err", err)
	}

	if !r.hasPending || c.Tick.Before(r.pending) {
		r.pending = c.Tick
		r.hasPending = true
	}

	r.record(func(rec Recorder) error {
		return rec.Correction(c.Tick, c.Entity, names, hash, false)
	})
	return nil
}

// isStale reports whether the correction duplicates authoritative state
// that reconciliation already resolved.
func (r *Reconciler) isStale(c Correction, authoritative map[string]any, hash string) bool {
	if !r.hasReconciled || c.Tick.After(r.lastReconciled) {
		return false
	}
	snap, ok := r.auth.Lookup(c.Entity, c.Tick)
	if !ok {
		return false
	}
	existing := make(map[string]any, len(authoritative))
	for name := range authoritative {
		v, ok := snap[name]
		if !ok {
			return false
		}
		existing[name] = v
	}
	existingHash, err := canon.Hash(existing)
	if err != nil {
		return false
	}
	return existingHash == hash
}

// Reconcile resolves all pending corrections, rewinding to the earliest
// outstanding target and resimulating forward to the present. A correction
// arriving during the pass (from within a Step callback) re-arms the target
// and the pass restarts from it, so the earliest outstanding tick always
// wins. No-op when nothing is pending.
func (r *Reconciler) Reconcile() error {
	if r.state != StateLive {
		return fmt.Errorf("rollback: Reconcile called during a reconciliation pass (state=%s)", r.state)
	}
	for r.hasPending {
		target := r.pending
		r.hasPending = false
		if err := r.runPass(target); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) runPass(requested tick.Tick) error {
	target := requested
	clamped := false
	if oldest, ok := r.hist.OldestAvailable(); ok && target.Before(oldest) {
		// Exact correction is impossible once data has aged out; proceed
		// best-effort from the oldest retained tick
		target = oldest
		clamped = true
		r.diag.ClampedCorrections++
		r.log.Warn("correction target clamped to retention horizon",
			"requested", requested, "target", target)
	}

	if !r.started || !target.Before(r.current) {
		// A snapshot from the future or exactly now: apply directly as the
		// new present, no replay
		if !r.started || target.After(r.current) {
			r.diag.FastForwards++
			r.log.Debug("fast-forwarding to correction tick", "from", r.current, "to", target)
		}
		r.state = StateRewinding
		r.restoreAt(target)
		r.state = StateLive
		r.current = target
		r.started = true
		if err := r.capture(target); err != nil {
			return err
		}
		r.finishPass(requested, target, clamped, 0)
		return nil
	}

	origCurrent := r.current

	r.state = StateRewinding
	r.restoreAt(target)

	r.state = StateResimulating
	steps := 0
	for t := target.Next(); !t.After(origCurrent); t = t.Next() {
		r.current = t
		r.stepper.Step(t)
		// Re-apply any authoritative data received for this tick before the
		// snapshot is taken, so replay passes through later corrections
		r.applyAuthoritative(t)
		if err := r.capture(t); err != nil {
			r.state = StateLive
			r.current = origCurrent
			return err
		}
		steps++
		r.diag.ResimulatedTicks++
	}

	r.state = StateLive
	r.current = origCurrent
	r.finishPass(requested, target, clamped, steps)
	return nil
}

func (r *Reconciler) finishPass(requested, target tick.Tick, clamped bool, steps int) {
	if !r.hasReconciled || target.After(r.lastReconciled) {
		r.lastReconciled = target
	}
	r.hasReconciled = true
	r.diag.Reconciliations++
	r.record(func(rec Recorder) error {
		return rec.Pass(requested, target, clamped, steps)
	})
}

// restoreAt writes the historical state at t back into the live simulation.
// Authoritative values come from the correction buffer when the server sent
// any for this tick; everything else comes from the captured snapshot, so
// predicted components start the replay from what was originally computed
// and get recomputed tick by tick.
func (r *Reconciler) restoreAt(t tick.Tick) {
	components := r.registry.Components()
	for _, e := range r.entities {
		snap, _ := r.hist.Lookup(e, t)
		authSnap, _ := r.auth.Lookup(e, t)
		if snap == nil && authSnap == nil {
			r.log.Debug("no history for entity at rewind target", "entity", e, "tick", t)
			continue
		}
		for _, name := range components {
			v, ok := authSnap[name]
			if !ok {
				if v, ok = snap[name]; !ok {
					continue
				}
			}
			reg, _ := r.registry.Lookup(name)
			reg.Restore(e, v)
		}
	}
}

// applyAuthoritative re-applies authoritative values received for t into
// the live state, if any.
func (r *Reconciler) applyAuthoritative(t tick.Tick) {
	components := r.registry.Components()
	for _, e := range r.entities {
		authSnap, ok := r.auth.Lookup(e, t)
		if !ok {
			continue
		}
		for _, name := range components {
			v, ok := authSnap[name]
			if !ok {
				continue
			}
			reg, _ := r.registry.Lookup(name)
			reg.Restore(e, v)
		}
	}
}

// capture records a snapshot of every tracked entity at t, overwriting
// whatever was previously recorded for that tick.
func (r *Reconciler) capture(t tick.Tick) error {
	components := r.registry.Components()
	for _, e := range r.entities {
		snap := make(history.Snapshot, len(components))
		for _, name := range components {
			reg, _ := r.registry.Lookup(name)
			if v, ok := reg.Capture(e); ok {
				snap[name] = v
			}
		}
		if err := r.hist.Record(e, t, snap); err != nil {
			return fmt.Errorf("rollback: recording snapshot: %w", err)
		}
	}
	return nil
}

func (r *Reconciler) record(fn func(Recorder) error) {
	if r.recorder == nil {
		return
	}
	if err := fn(r.recorder); err != nil {
		r.log.Warn("reconciliation recorder failed", "err", err)
	}
}

func sortedNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
