package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/cycles/config"
	"github.com/rustyeddy/cycles/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Swing cycle statistics and price projection",
	Long: `cycles detects swing cycles in a candle series, summarizes their
durations, prices and volumes, and projects a forward target price.

It can run live against a Binance kline stream or analyze a CSV file.`,
	SilenceUsage: true,
}

var (
	configPath string
	envFile    string
	logLevel   string
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file with CYCLES_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level from the config")
}

// loadConfig reads the layered configuration and installs the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	lvl, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	log := logger.Init("cycles", logger.Options{Level: lvl, Format: cfg.Log.Format})
	return cfg, log, nil
}
