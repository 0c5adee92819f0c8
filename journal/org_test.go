package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRunOrg(t *testing.T) {
	t.Parallel()

	r := Run{
		RunID:    "01HQZX8Y3K5V9W2M4N6P8R0T2V",
		Started:  time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC),
		Symbol:   "SUIUSDT",
		Interval: "1m",
		Params:   []byte(`{"min_duration":24}`),
	}
	open := sampleSnapshot(r.RunID, 2)
	open.HasTarget = false
	open.IndexAvgDuration = nil

	out := FormatRunOrg(r, []Snapshot{sampleSnapshot(r.RunID, 1), open})

	assert.True(t, strings.HasPrefix(out, "* Run: SUIUSDT 1m (01HQZX8Y)\n"))
	assert.Contains(t, out, ":RUN_ID: 01HQZX8Y3K5V9W2M4N6P8R0T2V")
	assert.Contains(t, out, ":STARTED: 2024-03-15T10:30:45Z")
	assert.Contains(t, out, ":SNAPSHOTS: 2")
	assert.Contains(t, out, `{"min_duration":24}`)
	assert.Contains(t, out, "| 1 | 2024-01-02 03:04 | 0.75430 | 12 | 0 | 31.5 | 4.25 | 0.72220 |")
	assert.Contains(t, out, "| 2 | 2024-01-02 03:04 | 0.75430 | 12 | 0 | - | - | - |")
}

func TestShortID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "short", shortID("short"))
	assert.Equal(t, "12345678", shortID("123456789"))
	assert.Equal(t, "", shortID(""))
}
