package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/cycles/pkg/id"
)

var ErrNotFound = errors.New("not found")

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) StartRun(ctx context.Context, r Run) error {
	params := r.Params
	if params == nil {
		params = []byte("{}")
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, started, symbol, interval, params)
		VALUES (?, ?, ?, ?, ?)`,
		r.RunID, r.Started.UTC(), r.Symbol, r.Interval, string(params),
	)
	return err
}

// Record inserts s, assigning an ID when it has none.
func (j *SQLiteJournal) Record(ctx context.Context, s Snapshot) error {
	if s.ID == "" {
		s.ID = id.New()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO snapshots
		(id, run_id, time, seq, symbol, interval, candles, bar_time, last_close,
		 index_count, inverse_count, index_avg_duration, inverse_avg_duration,
		 has_target, avg_drop_pct, target_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.RunID, s.Time.UTC(), int64(s.Seq), s.Symbol, s.Interval, s.Candles, s.BarTime, s.LastClose,
		s.IndexCount, s.InverseCount, s.IndexAvgDuration, s.InverseAvgDuration,
		s.HasTarget, s.AvgDropPct, s.TargetPrice,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// GetRun returns a single run by ID.
func (j *SQLiteJournal) GetRun(ctx context.Context, runID string) (Run, error) {
	var r Run
	var params string
	err := j.db.QueryRowContext(ctx, `
		SELECT run_id, started, symbol, interval, params
		FROM runs WHERE run_id = ?`, runID,
	).Scan(&r.RunID, &r.Started, &r.Symbol, &r.Interval, &params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return Run{}, err
	}
	r.Params = []byte(params)
	return r, nil
}

// ListRuns returns every run, newest first.
func (j *SQLiteJournal) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, started, symbol, interval, params
		FROM runs ORDER BY started DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var params string
		if err := rows.Scan(&r.RunID, &r.Started, &r.Symbol, &r.Interval, &params); err != nil {
			return nil, err
		}
		r.Params = []byte(params)
		out = append(out, r)
	}
	return out, rows.Err()
}
