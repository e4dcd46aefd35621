package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BinRangeConfig is a configured bin range for one pool and lockup period.
type BinRangeConfig struct {
	Pool   string `mapstructure:"pool"`
	Lockup string `mapstructure:"lockup"`
	Start  uint32 `mapstructure:"start"`
	End    uint32 `mapstructure:"end"`
}

// PairConfig holds curve parameters for one target-ratio pair.
type PairConfig struct {
	Pool        string `mapstructure:"pool"`
	KIn         string `mapstructure:"k_in"`
	KOut        string `mapstructure:"k_out"`
	Fee         string `mapstructure:"fee"`
	DecayFactor string `mapstructure:"decay_factor"`
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	LogLevel           string
	Families           []string
	BinStrategy        string
	PreferredBins      uint32
	RejectExhausted    bool
	TickOffset         int32
	MaxPriceDivergence decimal.Decimal
	BinRanges          []BinRangeConfig
	PairConfigs        []PairConfig

	RedisAddr   string
	RedisDB     int
	RedisPrefix string
	RedisTTL    time.Duration

	PgDSN      string
	MaxRetries int
	Out        string
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("ADAPTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("families", "bin,tick,shortage,constant_product")
	v.SetDefault("bin-strategy", "spread")
	v.SetDefault("preferred-bins", uint32(60))
	v.SetDefault("reject-exhausted", false)
	v.SetDefault("tick-offset", int32(29959))
	v.SetDefault("max-price-divergence", "0.01")
	v.SetDefault("redis-prefix", "adapter:pool_info:")
	v.SetDefault("redis-ttl", time.Duration(0))
	v.SetDefault("max-retries", 5)
	v.SetDefault("out", "./data/positions.jsonl")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	divergence, err := decimal.NewFromString(v.GetString("max-price-divergence"))
	if err != nil {
		return Config{}, fmt.Errorf("parse max-price-divergence: %w", err)
	}
	if divergence.IsNegative() {
		return Config{}, fmt.Errorf("max-price-divergence must not be negative")
	}

	cfg := Config{
		LogLevel:           v.GetString("log-level"),
		Families:           getStringSlice(v, "families"),
		BinStrategy:        v.GetString("bin-strategy"),
		PreferredBins:      v.GetUint32("preferred-bins"),
		RejectExhausted:    v.GetBool("reject-exhausted"),
		TickOffset:         v.GetInt32("tick-offset"),
		MaxPriceDivergence: divergence,
		RedisAddr:          v.GetString("redis-addr"),
		RedisDB:            v.GetInt("redis-db"),
		RedisPrefix:        v.GetString("redis-prefix"),
		RedisTTL:           v.GetDuration("redis-ttl"),
		PgDSN:              v.GetString("pg-dsn"),
		MaxRetries:         v.GetInt("max-retries"),
		Out:                v.GetString("out"),
	}
	if err := v.UnmarshalKey("bin-ranges", &cfg.BinRanges); err != nil {
		return Config{}, fmt.Errorf("parse bin-ranges: %w", err)
	}
	if err := v.UnmarshalKey("pair-configs", &cfg.PairConfigs); err != nil {
		return Config{}, fmt.Errorf("parse pair-configs: %w", err)
	}
	for _, r := range cfg.BinRanges {
		if r.Start > r.End {
			return Config{}, fmt.Errorf("bin range for %s: start %d after end %d", r.Pool, r.Start, r.End)
		}
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
