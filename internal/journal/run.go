package journal

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/rewind/internal/canon"
	"github.com/roach88/rewind/internal/sim"
	"github.com/roach88/rewind/internal/tick"
)

// Run is a recording session: one simulation's reconciliation event stream.
// It satisfies the reconciler's Recorder interface, so attaching a run to a
// reconciler journals every correction and pass it processes.
//
// IDs are UUIDv7, so run IDs sort by creation time.
type Run struct {
	j   *Journal
	ctx context.Context

	id  string
	seq int64
}

// Begin opens a new run for the named scenario and returns it ready to
// record. The context is retained for the lifetime of the run because the
// recording callbacks carry no context of their own.
func (j *Journal) Begin(ctx context.Context, scenario string) (*Run, error) {
	id := uuid.Must(uuid.NewV7()).String()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario) VALUES (?, ?)
	`, id, scenario)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return &Run{j: j, ctx: ctx, id: id}, nil
}

// ID returns the run's UUID.
func (r *Run) ID() string {
	return r.id
}

// Correction journals one authoritative update, accepted or stale.
func (r *Run) Correction(t tick.Tick, e sim.EntityID, components []string, hash string, stale bool) error {
	componentsJSON, err := canon.Marshal(components)
	if err != nil {
		return fmt.Errorf("journal correction: %w", err)
	}

	r.seq++
	_, err = r.j.db.ExecContext(r.ctx, `
		INSERT INTO corrections (run_id, seq, tick, entity, components, hash, stale)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.id, r.seq, int64(t), int64(e), string(componentsJSON), hash, boolToInt(stale))
	if err != nil {
		return fmt.Errorf("journal correction: %w", err)
	}
	return nil
}

// Pass journals one completed reconciliation pass.
func (r *Run) Pass(requested, target tick.Tick, clamped bool, steps int) error {
	r.seq++
	_, err := r.j.db.ExecContext(r.ctx, `
		INSERT INTO passes (run_id, seq, requested, target, clamped, steps)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.id, r.seq, int64(requested), int64(target), boolToInt(clamped), steps)
	if err != nil {
		return fmt.Errorf("journal pass: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
