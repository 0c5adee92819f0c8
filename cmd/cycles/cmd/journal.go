package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/cycles/journal"
	"github.com/rustyeddy/cycles/pkg/id"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the snapshot journal",
	Long: `Query and display journaled runs and snapshots from the SQLite database.

Subcommands:
  runs     - List recorded runs, newest first
  show     - Show one run and its snapshots as Org-mode
  snapshot - Show a single snapshot by ID
  latest   - Show the most recent snapshot

Examples:
  cycles journal runs
  cycles journal show <run-id>`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its snapshots",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalSnapshotCmd = &cobra.Command{
	Use:   "snapshot <snapshot-id>",
	Short: "Show a single snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalSnapshot,
}

var journalLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent snapshot",
	Args:  cobra.NoArgs,
	RunE:  runJournalLatest,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalSnapshotCmd)
	journalCmd.AddCommand(journalLatestCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (defaults to journal.db_path)")
}

func openJournal() (*journal.SQLiteJournal, error) {
	path := journalDBPath
	if path == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Journal.DBPath
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  %s %s\n", r.RunID, r.Started.Local().Format("2006-01-02 15:04:05"), r.Symbol, r.Interval)
	}
	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	r, err := j.GetRun(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	snaps, err := j.ListByRun(cmd.Context(), r.RunID)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	fmt.Println(journal.FormatRunOrg(r, snaps))
	return nil
}

func runJournalSnapshot(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	s, err := j.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get snapshot: %w", err)
	}
	printSnapshot(s)
	return nil
}

func runJournalLatest(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	s, err := j.Latest(cmd.Context())
	if err != nil {
		return fmt.Errorf("latest snapshot: %w", err)
	}
	printSnapshot(s)
	return nil
}

func printSnapshot(s journal.Snapshot) {
	fmt.Printf("Snapshot %s (run %s, seq %d)\n", s.ID, s.RunID, s.Seq)
	if t, err := id.Time(s.ID); err == nil {
		fmt.Printf("  Recorded: %s (%s ago)\n", t.Local().Format("2006-01-02 15:04:05"), time.Since(t).Round(time.Second))
	}
	fmt.Printf("  Market: %s %s, %d candles, bar %s close %.5f\n",
		s.Symbol, s.Interval, s.Candles, barTime(s.BarTime), s.LastClose)
	fmt.Printf("  Cycles: %d index, %d inverse\n", s.IndexCount, s.InverseCount)
	if s.HasTarget {
		fmt.Printf("  Target: %.5f (avg drop %.2f%%)\n", s.TargetPrice, s.AvgDropPct)
	} else {
		fmt.Println("  Target: none")
	}
}
