package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/cycles/config"
	"github.com/rustyeddy/cycles/engine"
	"github.com/rustyeddy/cycles/internal/binance"
	"github.com/rustyeddy/cycles/internal/scheduler"
	"github.com/rustyeddy/cycles/journal"
	"github.com/rustyeddy/cycles/market"
	"github.com/rustyeddy/cycles/pkg/id"
	"github.com/rustyeddy/cycles/publish"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live pipeline against the Binance kline stream",
	Long: `Download a kline snapshot, then keep the cycle statistics current from
the kline stream. Every pass is published to the log and optionally to
Redis, and journaled once per bar.

Example:
  cycles run -c cycles.yaml`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Running %s %s\n", cfg.Feed.Symbol, cfg.Feed.Interval)
	fmt.Printf("  Cycles: %d-%d bars\n", cfg.Cycles.MinDuration, cfg.Cycles.MaxDuration)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)

	sinks, closeSinks, err := buildSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	p := engine.NewPipeline(engine.New(), market.NewCandleStore(cfg.Feed.BufferCap), cfg.Params(),
		engine.WithSinks(sinks...),
		engine.WithMetrics(metrics),
		engine.WithLogger(log),
	)

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := engine.Serve(ctx, cfg.Metrics.Addr, engine.NewHandler(p, reg), log); err != nil {
				log.Error("metrics server", "err", err)
			}
		}()
	}

	client := &binance.Client{BaseURL: cfg.Feed.RestURL, HTTP: &http.Client{Timeout: 20 * time.Second}}
	snapshot := func(ctx context.Context) error {
		candles, err := client.Snapshot(ctx, binance.SnapshotOptions{
			Symbol:   cfg.Feed.Symbol,
			Interval: cfg.Feed.Interval,
			Limit:    cfg.Feed.SnapshotLimit,
		})
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		_, err = p.Load(ctx, candles)
		return err
	}

	if err := snapshot(ctx); err != nil {
		return err
	}
	fmt.Printf("✓ Loaded %d candles\n", p.Store().Len())

	if cfg.Feed.ResyncCron != "" {
		sched := scheduler.New(ctx, log)
		if err := sched.Add("resync", cfg.Feed.ResyncCron, snapshot); err != nil {
			return fmt.Errorf("schedule resync: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	stream := &binance.Stream{
		URL: cfg.Feed.StreamURL,
		Log: log,
		// Bars missed while disconnected are fetched again.
		OnReconnect: func(error) {
			if err := snapshot(ctx); err != nil && ctx.Err() == nil {
				log.Warn("resync after reconnect failed", "err", err)
			}
		},
	}

	ticks := make(chan market.Tick, 64)
	go func() {
		stream.Run(ctx, cfg.Feed.Symbol, cfg.Feed.Interval, ticks)
		close(ticks)
	}()

	err = p.Run(ctx, ticks)
	if ctx.Err() != nil {
		fmt.Println("\n✓ Stopped")
		if r := p.Latest(); r != nil {
			fmt.Printf("  Last pass: seq %d, %d cycles\n", r.Seq, len(r.Cycles))
		}
		return nil
	}
	return err
}

// buildSinks assembles the publishers and the journal recorder named by
// the config. The returned func closes whatever was opened.
func buildSinks(ctx context.Context, cfg *config.Config, log *slog.Logger) ([]engine.Sink, func(), error) {
	var sinks []engine.Sink
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("close sink", "err", err)
			}
		}
	}

	if cfg.Publish.Log {
		sinks = append(sinks, publish.Log{Logger: log})
	}
	if cfg.Publish.RedisAddr != "" {
		r := publish.NewRedis(cfg.Publish.RedisAddr, cfg.Publish.RedisChannel, cfg.Feed.Symbol, cfg.Feed.Interval)
		sinks = append(sinks, r)
		closers = append(closers, r.Close)
	}

	var j journal.Journal
	var err error
	switch cfg.Journal.Type {
	case "sqlite":
		j, err = journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		j, err = journal.NewCSV(cfg.Journal.CSVPath)
	}
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("create journal: %w", err)
	}
	if j != nil {
		closers = append(closers, j.Close)
		params, err := json.Marshal(cfg.Params())
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("encode params: %w", err)
		}
		run := journal.Run{
			RunID:    id.New(),
			Started:  time.Now(),
			Symbol:   cfg.Feed.Symbol,
			Interval: cfg.Feed.Interval,
			Params:   params,
		}
		if err := j.StartRun(ctx, run); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("start run: %w", err)
		}
		sinks = append(sinks, &journal.Recorder{J: j, RunID: run.RunID, Symbol: run.Symbol, Interval: run.Interval})
		fmt.Printf("  Run: %s\n", run.RunID)
	}
	return sinks, closeAll, nil
}
