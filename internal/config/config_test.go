package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PreferredBins != 60 || cfg.TickOffset != 29959 || cfg.BinStrategy != "spread" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxPriceDivergence.String() != "0.01" {
		t.Fatalf("unexpected divergence %s", cfg.MaxPriceDivergence)
	}
	want := []string{"bin", "tick", "shortage", "constant_product"}
	if !reflect.DeepEqual(cfg.Families, want) {
		t.Fatalf("unexpected families: %v", cfg.Families)
	}
}

func TestLoadFlagsEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adapter.yaml")
	content := `
preferred-bins: 20
bin-ranges:
  - pool: "0x0000000000000000000000000000000000000c01"
    lockup: 6mo
    start: 26000
    end: 28000
pair-configs:
  - pool: "0x0000000000000000000000000000000000000c03"
    k_in: "0.5"
    k_out: "1"
    fee: "0.003"
    decay_factor: "0.9"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ADAPTER_TICK_OFFSET", "100")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	if err := flags.Parse([]string{"--log-level=debug"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PreferredBins != 20 || cfg.TickOffset != 100 || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.BinRanges) != 1 || cfg.BinRanges[0].Start != 26000 || cfg.BinRanges[0].Lockup != "6mo" {
		t.Fatalf("unexpected bin ranges: %+v", cfg.BinRanges)
	}
	if len(cfg.PairConfigs) != 1 || cfg.PairConfigs[0].KIn != "0.5" {
		t.Fatalf("unexpected pair configs: %+v", cfg.PairConfigs)
	}
}

func TestLoadSimulateValidates(t *testing.T) {
	if _, err := LoadSimulate("", nil); err == nil {
		t.Fatalf("expected missing scenario error")
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("scenario", "", "")
	flags.String("store", "jsonl", "")
	if err := flags.Parse([]string{"--scenario=s.yaml", "--store=postgres"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := LoadSimulate("", flags); err == nil {
		t.Fatalf("expected pg-dsn error")
	}
}
