package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityAdapter/internal/config"
	"liquidityAdapter/internal/model"
)

type priceDiffResult struct {
	PriceA             model.Price     `json:"price_a"`
	PriceB             model.Price     `json:"price_b"`
	RelativeDifference decimal.Decimal `json:"relative_difference"`
	MaxDifference      decimal.Decimal `json:"max_difference"`
	WithinTolerance    bool            `json:"within_tolerance"`
}

func runPriceDiff(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	base, err := parseAddress(cmd, "base")
	if err != nil {
		return err
	}
	quote, err := parseAddress(cmd, "quote")
	if err != nil {
		return err
	}
	valueA, err := parseDecimalFlag(cmd, "price-a")
	if err != nil {
		return err
	}
	valueB, err := parseDecimalFlag(cmd, "price-b")
	if err != nil {
		return err
	}
	reversed, _ := cmd.Flags().GetBool("b-reversed")

	a := model.Price{Base: base, Quote: quote, Price: valueA}
	b := model.Price{Base: base, Quote: quote, Price: valueB}
	if reversed {
		b = model.Price{Base: quote, Quote: base, Price: valueB}
	}

	diff, err := a.RelativeDifference(b)
	if err != nil {
		return err
	}
	within, err := a.WithinTolerance(b, cfg.MaxPriceDivergence)
	if err != nil {
		return err
	}

	if !within {
		logger.Warn("prices diverge",
			zap.String("relative_difference", diff.String()),
			zap.String("max", cfg.MaxPriceDivergence.String()),
		)
	}
	return writeJSON(cmd.OutOrStdout(), priceDiffResult{
		PriceA:             a,
		PriceB:             b,
		RelativeDifference: diff,
		MaxDifference:      cfg.MaxPriceDivergence,
		WithinTolerance:    within,
	})
}

func parseAddress(cmd *cobra.Command, flag string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(flag)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", flag, raw)
	}
	return common.HexToAddress(raw), nil
}

func parseDecimalFlag(cmd *cobra.Command, flag string) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(flag)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%s is required", flag)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s: %w", flag, err)
	}
	return value, nil
}
