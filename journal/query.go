package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const snapshotColumns = `id, run_id, time, seq, symbol, interval, candles, bar_time, last_close,
	index_count, inverse_count, index_avg_duration, inverse_avg_duration,
	has_target, avg_drop_pct, target_price`

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var s Snapshot
	var seq int64
	err := row.Scan(
		&s.ID, &s.RunID, &s.Time, &seq, &s.Symbol, &s.Interval,
		&s.Candles, &s.BarTime, &s.LastClose,
		&s.IndexCount, &s.InverseCount, &s.IndexAvgDuration, &s.InverseAvgDuration,
		&s.HasTarget, &s.AvgDropPct, &s.TargetPrice,
	)
	s.Seq = uint64(seq)
	return s, err
}

// Get returns a single snapshot by ID.
func (j *SQLiteJournal) Get(ctx context.Context, snapshotID string) (Snapshot, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, snapshotID)
	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("snapshot %q: %w", snapshotID, ErrNotFound)
		}
		return Snapshot{}, err
	}
	return s, nil
}

// ListByRun returns the snapshots of a run in publish order.
func (j *SQLiteJournal) ListByRun(ctx context.Context, runID string) ([]Snapshot, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE run_id = ? ORDER BY seq ASC, id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the most recently recorded snapshot of any run.
func (j *SQLiteJournal) Latest(ctx context.Context) (Snapshot, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY id DESC LIMIT 1`)
	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("latest snapshot: %w", ErrNotFound)
		}
		return Snapshot{}, err
	}
	return s, nil
}
