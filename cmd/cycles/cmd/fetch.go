package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/cycles/internal/binance"
	"github.com/rustyeddy/cycles/market"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a kline snapshot to CSV",
	Long: `Download the most recent klines for the configured symbol and interval
and write them as time,open,high,low,close,volume rows.

Example:
  cycles fetch --symbol SUIUSDT --interval 5m -o sui-5m.csv`,
	RunE: runFetch,
}

var (
	fetchOutput   string
	fetchSymbol   string
	fetchInterval string
	fetchLimit    int
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output CSV path (required)")
	fetchCmd.Flags().StringVar(&fetchSymbol, "symbol", "", "override feed.symbol")
	fetchCmd.Flags().StringVar(&fetchInterval, "interval", "", "override feed.interval")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 0, "override feed.snapshot_limit")
	fetchCmd.MarkFlagRequired("output")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	opts := binance.SnapshotOptions{
		Symbol:   cfg.Feed.Symbol,
		Interval: cfg.Feed.Interval,
		Limit:    cfg.Feed.SnapshotLimit,
	}
	if fetchSymbol != "" {
		opts.Symbol = fetchSymbol
	}
	if fetchInterval != "" {
		opts.Interval = fetchInterval
	}
	if fetchLimit > 0 {
		opts.Limit = fetchLimit
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	client := &binance.Client{BaseURL: cfg.Feed.RestURL, HTTP: &http.Client{Timeout: 20 * time.Second}}
	candles, err := client.Snapshot(ctx, opts)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	f, err := os.Create(fetchOutput)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	if err := market.WriteCandlesCSV(f, candles); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	fmt.Printf("✓ Wrote %d candles to %s\n", len(candles), fetchOutput)
	if len(candles) > 0 {
		fmt.Printf("  Range: %s to %s\n", barTime(candles[0].Time), barTime(candles[len(candles)-1].Time))
	}
	return nil
}

func barTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
