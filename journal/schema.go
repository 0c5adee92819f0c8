package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	started DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	params TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	seq INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	candles INTEGER NOT NULL,
	bar_time INTEGER NOT NULL,
	last_close REAL NOT NULL,
	index_count INTEGER NOT NULL,
	inverse_count INTEGER NOT NULL,
	index_avg_duration REAL,
	inverse_avg_duration REAL,
	has_target INTEGER NOT NULL,
	avg_drop_pct REAL NOT NULL,
	target_price REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots(run_id, seq);
`
