package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityAdapter/internal/bins"
	"liquidityAdapter/internal/config"
	"liquidityAdapter/internal/sizing"
)

func runSelectBins(cmd *cobra.Command, _ []string) error {
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

	selected, err := selectBins(cmd, cfg.PreferredBins, cfg.BinStrategy)
	if err != nil {
		return err
	}

	logger.Debug("bins selected",
		zap.Uint32("active", selected.Active),
		zap.Int("lower", len(selected.Lower)),
		zap.Int("higher", len(selected.Higher)),
		zap.Bool("exhausted", selected.Exhausted()),
	)
	return writeJSON(cmd.OutOrStdout(), selected)
}

func selectBins(cmd *cobra.Command, preferred uint32, strategy string) (bins.SelectedBins, error) {
	active, _ := cmd.Flags().GetUint32("active")
	span, _ := cmd.Flags().GetUint32("span")
	start, _ := cmd.Flags().GetUint32("range-start")
	end, _ := cmd.Flags().GetUint32("range-end")

	if span == 0 {
		return bins.SelectedBins{}, fmt.Errorf("span is required")
	}
	if active > bins.MaxTick {
		return bins.SelectedBins{}, fmt.Errorf("active bin %d above max tick %d", active, bins.MaxTick)
	}
	if strategy == "range" || end > 0 {
		return bins.SelectRange(active, span, start, end)
	}
	return bins.Select(active, span, preferred), nil
}

func runSize(cmd *cobra.Command, _ []string) error {
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

	in := sizing.Input{}
	for flag, dst := range map[string]*decimal.Decimal{
		"amount-x": &in.AmountX,
		"amount-y": &in.AmountY,
		"active-x": &in.ActiveX,
		"active-y": &in.ActiveY,
		"price":    &in.Price,
	} {
		raw, _ := cmd.Flags().GetString(flag)
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", flag, err)
		}
		*dst = value
	}

	in.Bins, err = selectBins(cmd, cfg.PreferredBins, cfg.BinStrategy)
	if err != nil {
		return err
	}

	var plan sizing.Plan
	if cfg.BinStrategy == "range" {
		plan, err = sizing.SizeRange(in)
	} else {
		plan, err = sizing.SizeSpread(in)
	}
	if err != nil {
		return err
	}

	logger.Info("position sized",
		zap.Int("positions", len(plan.Positions)),
		zap.String("deployed_x", plan.DeployedX.String()),
		zap.String("deployed_y", plan.DeployedY.String()),
		zap.String("change_x", plan.ChangeX.String()),
		zap.String("change_y", plan.ChangeY.String()),
	)
	return writeJSON(cmd.OutOrStdout(), plan)
}
