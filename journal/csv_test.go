package journal

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVJournalHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snapshots.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()

	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, csvHeader, rows[0])
}

func TestCSVJournalRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "snapshots.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)

	s := sampleSnapshot("run-1", 4)
	s.ID = "snap-1"
	require.NoError(t, j.StartRun(ctx, Run{RunID: "run-1"}))
	require.NoError(t, j.Record(ctx, s))

	s2 := sampleSnapshot("run-1", 5)
	s2.HasTarget = false
	s2.IndexAvgDuration = nil
	require.NoError(t, j.Record(ctx, s2))
	require.NoError(t, j.Close())

	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	row := rows[1]
	assert.Equal(t, "snap-1", row[0])
	assert.Equal(t, "run-1", row[1])
	assert.Equal(t, "2024-01-02T03:04:05Z", row[2])
	assert.Equal(t, "4", row[3])
	assert.Equal(t, "0.754300", row[8])
	assert.Equal(t, "31.500000", row[11])
	assert.Equal(t, "", row[12])
	assert.Equal(t, "true", row[13])

	assert.NotEmpty(t, rows[2][0])
	assert.Equal(t, "", rows[2][11])
	assert.Equal(t, "false", rows[2][13])
}
