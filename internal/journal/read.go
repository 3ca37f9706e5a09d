package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/rewind/internal/sim"
	"github.com/roach88/rewind/internal/tick"
)

// RunRecord describes one recorded run.
type RunRecord struct {
	ID        string `json:"id"`
	Scenario  string `json:"scenario"`
	StartedAt string `json:"started_at"`
}

// CorrectionRecord is one journaled authoritative update.
type CorrectionRecord struct {
	Seq        int64        `json:"seq"`
	Tick       tick.Tick    `json:"tick"`
	Entity     sim.EntityID `json:"entity"`
	Components []string     `json:"components"`
	Hash       string       `json:"hash"`
	Stale      bool         `json:"stale,omitempty"`
}

// PassRecord is one journaled reconciliation pass.
type PassRecord struct {
	Seq       int64     `json:"seq"`
	Requested tick.Tick `json:"requested"`
	Target    tick.Tick `json:"target"`
	Clamped   bool      `json:"clamped,omitempty"`
	Steps     int       `json:"steps"`
}

// Runs returns all recorded runs, oldest first. UUIDv7 ids sort by creation
// time, so ordering by id is chronological.
//
// Returns an empty slice (not nil) if no runs exist.
func (j *Journal) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, scenario, started_at
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Scenario, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// Corrections returns the journaled corrections for a run in recording
// order.
func (j *Journal) Corrections(ctx context.Context, runID string) ([]CorrectionRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, tick, entity, components, hash, stale
		FROM corrections
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query corrections: %w", err)
	}
	defer rows.Close()

	records := []CorrectionRecord{}
	for rows.Next() {
		var (
			rec            CorrectionRecord
			t, entity      int64
			componentsJSON string
			stale          int
		)
		if err := rows.Scan(&rec.Seq, &t, &entity, &componentsJSON, &rec.Hash, &stale); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		if err := json.Unmarshal([]byte(componentsJSON), &rec.Components); err != nil {
			return nil, fmt.Errorf("decode correction components: %w", err)
		}
		rec.Tick = tick.Tick(t)
		rec.Entity = sim.EntityID(entity)
		rec.Stale = stale != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corrections: %w", err)
	}

	return records, nil
}

// Passes returns the journaled reconciliation passes for a run in recording
// order.
func (j *Journal) Passes(ctx context.Context, runID string) ([]PassRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, requested, target, clamped, steps
		FROM passes
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	records := []PassRecord{}
	for rows.Next() {
		var (
			rec               PassRecord
			requested, target int64
			clamped           int
		)
		if err := rows.Scan(&rec.Seq, &requested, &target, &clamped, &rec.Steps); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		rec.Requested = tick.Tick(requested)
		rec.Target = tick.Tick(target)
		rec.Clamped = clamped != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}

	return records, nil
}
