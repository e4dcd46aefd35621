package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "adapterctl",
		Short:        "Liquidity adapter toolkit",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	selectCmd := &cobra.Command{
		Use:   "select-bins",
		Short: "Select the bins a position would use around the active bin",
		RunE:  runSelectBins,
	}
	selectCmd.Flags().Uint32("active", 0, "active bin")
	selectCmd.Flags().Uint32("span", 0, "bin span")
	selectCmd.Flags().Uint32("preferred-bins", 60, "combined count of lower and higher bins")
	selectCmd.Flags().Uint32("range-start", 0, "first bin of a configured range")
	selectCmd.Flags().Uint32("range-end", 0, "last bin of a configured range, 0 selects by preferred-bins")
	selectCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(selectCmd)

	sizeCmd := &cobra.Command{
		Use:   "size",
		Short: "Size a bin position for the given amounts and active bin",
		RunE:  runSize,
	}
	sizeCmd.Flags().String("amount-x", "0", "amount of resource X to contribute")
	sizeCmd.Flags().String("amount-y", "0", "amount of resource Y to contribute")
	sizeCmd.Flags().String("active-x", "0", "resource X held by the active bin")
	sizeCmd.Flags().String("active-y", "0", "resource Y held by the active bin")
	sizeCmd.Flags().String("price", "", "pool price of X in Y")
	sizeCmd.Flags().Uint32("active", 0, "active bin")
	sizeCmd.Flags().Uint32("span", 0, "bin span")
	sizeCmd.Flags().Uint32("preferred-bins", 60, "combined count of lower and higher bins")
	sizeCmd.Flags().String("bin-strategy", "spread", "bin strategy (spread, range)")
	sizeCmd.Flags().Uint32("range-start", 0, "first bin for the range strategy")
	sizeCmd.Flags().Uint32("range-end", 0, "last bin for the range strategy")
	sizeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(sizeCmd)

	priceCmd := &cobra.Command{
		Use:   "price-diff",
		Short: "Compare two prices of the same pair",
		RunE:  runPriceDiff,
	}
	priceCmd.Flags().String("base", "", "base resource address")
	priceCmd.Flags().String("quote", "", "quote resource address")
	priceCmd.Flags().String("price-a", "", "first price, quote per base")
	priceCmd.Flags().String("price-b", "", "second price")
	priceCmd.Flags().Bool("b-reversed", false, "price-b is quoted as base per quote")
	priceCmd.Flags().String("max-price-divergence", "0.01", "largest accepted relative difference")
	priceCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(priceCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a pool scenario through the adapters",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().String("scenario", "", "scenario YAML path")
	simulateCmd.Flags().String("store", "jsonl", "position journal (jsonl, postgres, none)")
	simulateCmd.Flags().String("out", "./data/positions.jsonl", "JSONL journal path")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	simulateCmd.Flags().Int("max-retries", 5, "maximum connection retry attempts")
	simulateCmd.Flags().String("redis-addr", "", "redis address for the pool information cache")
	simulateCmd.Flags().String("metrics-addr", "", "serve /metrics and /healthz on this address")
	simulateCmd.Flags().String("bin-strategy", "spread", "bin strategy (spread, range)")
	simulateCmd.Flags().Uint32("preferred-bins", 60, "combined count of lower and higher bins")
	simulateCmd.Flags().Bool("reject-exhausted", false, "fail opens that find no bins beside the active bin")
	simulateCmd.Flags().Int32("tick-offset", 29959, "tick distance of each range bound from the active tick")
	simulateCmd.Flags().String("max-price-divergence", "0.01", "warn when the price moved more than this between open and close")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(simulateCmd)

	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
