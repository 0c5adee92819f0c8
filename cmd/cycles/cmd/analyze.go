package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/cycles/cycles"
	"github.com/rustyeddy/cycles/engine"
	"github.com/rustyeddy/cycles/market"
	"github.com/rustyeddy/cycles/publish"
	"github.com/rustyeddy/cycles/stats"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one pass over a CSV candle file",
	Long: `Load candles from a CSV file, detect cycles and print the statistics,
distributions and projection.

Examples:
  cycles analyze -i sui-5m.csv
  cycles analyze -i sui-5m.csv --manual 120:150 --json`,
	RunE: runAnalyze,
}

var (
	analyzeInput  string
	analyzeManual string
	analyzeJSON   bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "input CSV path (required)")
	analyzeCmd.Flags().StringVar(&analyzeManual, "manual", "", "manual cycle override as start:end candle indices")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the published JSON payload instead of a summary")
	analyzeCmd.MarkFlagRequired("input")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	candles, err := market.LoadCandlesCSV(analyzeInput)
	if err != nil {
		return fmt.Errorf("load candles: %w", err)
	}

	params := cfg.Params()
	if analyzeManual != "" {
		o, err := parseManual(analyzeManual)
		if err != nil {
			return err
		}
		params = params.WithManual(&o)
	}

	res, err := engine.New().Recompute(candles, params)
	if err != nil {
		return fmt.Errorf("recompute: %w", err)
	}

	if analyzeJSON {
		p := publish.Encode(res)
		p.Symbol = cfg.Feed.Symbol
		p.Interval = cfg.Feed.Interval
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	printResult(res)
	return nil
}

func parseManual(s string) (cycles.ManualOverride, error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return cycles.ManualOverride{}, fmt.Errorf("manual override %q: want start:end", s)
	}
	start, err := strconv.Atoi(a)
	if err != nil {
		return cycles.ManualOverride{}, fmt.Errorf("manual start: %w", err)
	}
	end, err := strconv.Atoi(b)
	if err != nil {
		return cycles.ManualOverride{}, fmt.Errorf("manual end: %w", err)
	}
	return cycles.ManualOverride{StartIndex: start, EndIndex: end}, nil
}

func printResult(res *engine.Result) {
	fmt.Printf("✓ Analyzed %d candles with %s\n", len(res.Candles), res.Indicator)
	fmt.Printf("  Divergences: %d\n", len(res.Divergences))
	fmt.Printf("  Cycles: %d displayed, %d reference\n", len(res.Cycles), len(res.Reference))
	if r := res.RangeEnd; r != nil {
		fmt.Printf("  Next close expected: bars %d to %d\n", r.StartIndex, r.StartIndex+r.MaxDuration)
	}

	fmt.Println("\nIndex cycles (inverted):")
	printSummary(res.Stats.Index, res.IndexDist)
	fmt.Println("\nInverse cycles (normal):")
	printSummary(res.Stats.Inverse, res.InverseDist)

	fmt.Println()
	if p := res.Projection; p != nil {
		fmt.Printf("Projection: %.5f (avg drop %.2f%%)\n", p.Price, p.DropPct)
	} else {
		fmt.Println("Projection: none")
	}
}

func printSummary(s stats.Summary, d stats.Distribution) {
	if s.Empty() {
		fmt.Println("  none")
		return
	}
	fmt.Printf("  Count: %d\n", s.Count)
	fmt.Printf("  Duration: %.1f ± %.1f bars\n", s.AvgDuration.Or(0), s.StdDevDuration.Or(0))
	fmt.Printf("  Max price variation: %.2f%%\n", s.MaxPriceVariationPct.Or(0))
	fmt.Printf("  Volume delta: pre %.1f%%, post %.1f%%\n", s.AvgVolumeDeltaPrePct.Or(0), s.AvgVolumeDeltaPostPct.Or(0))

	h := d.Histogram
	fmt.Printf("  Histogram [%.1f, %.1f] width %.2f:\n", h.Min, h.Max, h.BinWidth)
	for i, r := range h.Ratios() {
		lo := h.Min + float64(i)*h.BinWidth
		fmt.Printf("    %6.1f | %-20s %d\n", lo, strings.Repeat("#", int(r*20+0.5)), h.Bins[i])
	}
	if g := d.Gaussian; g != nil {
		fmt.Printf("  Gaussian: mean %.2f, sd %.2f\n", g.Mean, g.StdDev)
	}
	if n := len(d.RollingAverage); n > 0 {
		fmt.Printf("  Trend (%d-cycle avg): %.1f\n", stats.TrendWindow, d.RollingAverage[n-1])
	}
}
