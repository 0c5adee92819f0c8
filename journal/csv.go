package journal

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/cycles/pkg/id"
)

var csvHeader = []string{
	"id", "run_id", "time", "seq", "symbol", "interval", "candles", "bar_time", "last_close",
	"index_count", "inverse_count", "index_avg_duration", "inverse_avg_duration",
	"has_target", "avg_drop_pct", "target_price",
}

// CSVJournal appends snapshots to a CSV file. Runs are not stored.
type CSVJournal struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSVJournal, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(fh)
	if err := w.Write(csvHeader); err != nil {
		fh.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fh.Close()
		return nil, err
	}
	return &CSVJournal{w: w, f: fh}, nil
}

func (j *CSVJournal) StartRun(context.Context, Run) error { return nil }

func (j *CSVJournal) Record(_ context.Context, s Snapshot) error {
	if s.ID == "" {
		s.ID = id.New()
	}
	err := j.w.Write([]string{
		s.ID,
		s.RunID,
		s.Time.UTC().Format(time.RFC3339Nano),
		strconv.FormatUint(s.Seq, 10),
		s.Symbol,
		s.Interval,
		strconv.Itoa(s.Candles),
		strconv.FormatInt(s.BarTime, 10),
		f(s.LastClose),
		strconv.Itoa(s.IndexCount),
		strconv.Itoa(s.InverseCount),
		optF(s.IndexAvgDuration),
		optF(s.InverseAvgDuration),
		strconv.FormatBool(s.HasTarget),
		f(s.AvgDropPct),
		f(s.TargetPrice),
	})
	if err != nil {
		return err
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func optF(x *float64) string {
	if x == nil {
		return ""
	}
	return f(*x)
}
