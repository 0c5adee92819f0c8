package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatRunOrg renders a run and its snapshots as an Org-mode block: the
// run facts in a PROPERTIES drawer, then one table row per snapshot.
func FormatRunOrg(r Run, snaps []Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "* Run: %s %s (%s)\n", r.Symbol, r.Interval, shortID(r.RunID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":RUN_ID: %s\n", r.RunID)
	fmt.Fprintf(&b, ":STARTED: %s\n", r.Started.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":SYMBOL: %s\n", r.Symbol)
	fmt.Fprintf(&b, ":INTERVAL: %s\n", r.Interval)
	fmt.Fprintf(&b, ":SNAPSHOTS: %d\n", len(snaps))
	b.WriteString(":END:\n\n")

	if len(r.Params) > 0 {
		b.WriteString("#+begin_src json\n")
		b.Write(r.Params)
		b.WriteString("\n#+end_src\n\n")
	}

	b.WriteString("| seq | bar | close | index | inverse | avg dur | drop % | target |\n")
	b.WriteString("|-----+-----+-------+-------+---------+---------+--------+--------|\n")
	for _, s := range snaps {
		fmt.Fprintf(&b, "| %d | %s | %.5f | %d | %d | %s | %s | %s |\n",
			s.Seq,
			time.UnixMilli(s.BarTime).UTC().Format("2006-01-02 15:04"),
			s.LastClose,
			s.IndexCount,
			s.InverseCount,
			optFmt(s.IndexAvgDuration, "%.1f"),
			targetFmt(s, s.AvgDropPct, "%.2f"),
			targetFmt(s, s.TargetPrice, "%.5f"),
		)
	}
	return b.String()
}

func optFmt(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func targetFmt(s Snapshot, v float64, format string) string {
	if !s.HasTarget {
		return "-"
	}
	return fmt.Sprintf(format, v)
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
