package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	Config
	Scenario    string
	Store       string
	MetricsAddr string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return SimulateConfig{}, err
	}
	v.SetDefault("store", "jsonl")

	base, err := fromViper(v)
	if err != nil {
		return SimulateConfig{}, err
	}
	cfg := SimulateConfig{
		Config:      base,
		Scenario:    v.GetString("scenario"),
		Store:       v.GetString("store"),
		MetricsAddr: v.GetString("metrics-addr"),
	}
	if cfg.Scenario == "" {
		return SimulateConfig{}, fmt.Errorf("scenario is required")
	}
	switch cfg.Store {
	case "jsonl", "postgres", "none":
	default:
		return SimulateConfig{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if cfg.Store == "postgres" && cfg.PgDSN == "" {
		return SimulateConfig{}, fmt.Errorf("pg-dsn is required for the postgres store")
	}
	return cfg, nil
}
