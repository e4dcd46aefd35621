package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityAdapter/internal/adapter"
	"liquidityAdapter/internal/cache"
	"liquidityAdapter/internal/config"
	"liquidityAdapter/internal/metrics"
	"liquidityAdapter/internal/model"
	"liquidityAdapter/internal/simpool"
	"liquidityAdapter/internal/storage"
	"liquidityAdapter/internal/storage/postgres"
	"liquidityAdapter/internal/txn"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scenario, err := simpool.LoadScenario(cfg.Scenario)
	if err != nil {
		return err
	}
	world, err := scenario.Build()
	if err != nil {
		return err
	}

	metrics.Serve(ctx, cfg.MetricsAddr, nil, logger)

	var poolInfo adapter.PoolInfoCache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisPoolInfoCache(cache.RedisOptions{
			Addr:   cfg.RedisAddr,
			DB:     cfg.RedisDB,
			Prefix: cfg.RedisPrefix,
			TTL:    cfg.RedisTTL,
		}, logger)
		defer redisCache.Close()
		poolInfo = redisCache
	}

	registry, err := buildRegistry(cfg.Config, world, poolInfo, logger)
	if err != nil {
		return err
	}

	var store storage.PositionStore
	switch cfg.Store {
	case "jsonl":
		store = storage.NewJsonlStore(cfg.Out, logger)
	case "postgres":
		pg, err := postgres.NewStore(ctx, cfg.PgDSN, cfg.MaxRetries, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		store = pg
	}

	sim := &simulator{
		world:         world,
		registry:      registry,
		store:         store,
		logger:        logger,
		maxDivergence: cfg.MaxPriceDivergence,
		now:           time.Now,
		open:          make(map[string]openPosition),
	}

	logger.Info("simulation start",
		zap.String("scenario", cfg.Scenario),
		zap.Int("pools", len(scenario.Pools)),
		zap.Int("steps", len(scenario.Steps)),
		zap.String("store", cfg.Store),
	)

	for i, step := range scenario.Steps {
		err := txn.Run(ctx, world.Participants(), func(ctx context.Context) error {
			return sim.apply(ctx, step)
		})
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
	}

	logger.Info("simulation done",
		zap.Int("closed", len(sim.closed)),
		zap.Int("still_open", len(sim.open)),
	)
	return writeJSON(cmd.OutOrStdout(), sim.closed)
}

func buildRegistry(cfg config.Config, world *simpool.World, poolInfo adapter.PoolInfoCache, logger *zap.Logger) (*adapter.Registry, error) {
	families := make([]adapter.Family, 0, len(cfg.Families))
	for _, name := range cfg.Families {
		family, err := adapter.ParseFamily(name)
		if err != nil {
			return nil, err
		}
		families = append(families, family)
	}

	bin := adapter.NewBinAdapter(resolverFor[adapter.BinPool](world.Bin), poolInfo, adapter.BinConfig{
		Strategy:        adapter.BinStrategy(cfg.BinStrategy),
		PreferredBins:   cfg.PreferredBins,
		RejectExhausted: cfg.RejectExhausted,
	}, logger)
	for _, r := range cfg.BinRanges {
		pool, err := hexAddress(r.Pool)
		if err != nil {
			return nil, err
		}
		lockup, err := model.ParseLockupPeriod(r.Lockup)
		if err != nil {
			return nil, err
		}
		if err := bin.UpsertBinRange(pool, lockup, adapter.BinRange{Start: r.Start, End: r.End}); err != nil {
			return nil, err
		}
	}

	shortage := adapter.NewShortageAdapter(resolverFor[adapter.ShortagePool](world.Shortage), logger)
	for pool, pc := range world.PairConfigs {
		if err := shortage.SetPairConfig(pool, pc); err != nil {
			return nil, fmt.Errorf("pair config %s: %w", pool.Hex(), err)
		}
	}
	for _, pc := range cfg.PairConfigs {
		pool, parsed, err := parsePairConfig(pc)
		if err != nil {
			return nil, err
		}
		if err := shortage.SetPairConfig(pool, parsed); err != nil {
			return nil, fmt.Errorf("pair config %s: %w", pool.Hex(), err)
		}
	}

	registry := adapter.NewRegistry()
	registry.Register(bin)
	registry.Register(adapter.NewTickAdapter(resolverFor[adapter.TickPool](world.Tick), cfg.TickOffset, logger))
	registry.Register(shortage)
	registry.Register(adapter.NewConstantProductAdapter(resolverFor[adapter.ConstantProductPool](world.ConstantProduct), logger))

	// Pools of a disabled family stay unbound, so ForPool rejects them.
	for _, a := range registry.Enabled(families) {
		switch a.Family() {
		case adapter.FamilyBin:
			bindAll(registry, world.Bin, adapter.FamilyBin)
		case adapter.FamilyTick:
			bindAll(registry, world.Tick, adapter.FamilyTick)
		case adapter.FamilyShortage:
			bindAll(registry, world.Shortage, adapter.FamilyShortage)
		case adapter.FamilyConstantProduct:
			bindAll(registry, world.ConstantProduct, adapter.FamilyConstantProduct)
		}
	}
	return registry, nil
}

func resolverFor[P any, S any](pools map[common.Address]S) adapter.Resolver[P] {
	out := make(map[common.Address]P, len(pools))
	for address, pool := range pools {
		out[address] = any(pool).(P)
	}
	return adapter.StaticResolver(out)
}

func bindAll[S any](registry *adapter.Registry, pools map[common.Address]S, family adapter.Family) {
	for address := range pools {
		registry.Bind(address, family)
	}
}

func hexAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func parsePairConfig(pc config.PairConfig) (common.Address, model.PairConfig, error) {
	pool, err := hexAddress(pc.Pool)
	if err != nil {
		return common.Address{}, model.PairConfig{}, err
	}
	var out model.PairConfig
	fields := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{pc.KIn, &out.KIn},
		{pc.KOut, &out.KOut},
		{pc.Fee, &out.Fee},
		{pc.DecayFactor, &out.DecayFactor},
	}
	for _, f := range fields {
		if f.raw == "" {
			*f.dst = decimal.Zero
			continue
		}
		value, err := decimal.NewFromString(f.raw)
		if err != nil {
			return common.Address{}, model.PairConfig{}, fmt.Errorf("pair config %s: %w", pc.Pool, err)
		}
		*f.dst = value
	}
	return pool, out, nil
}

type openPosition struct {
	record   storage.PositionRecord
	price    model.Price
	hasPrice bool
}

// simulator carries out scenario steps against the registry's adapters.
type simulator struct {
	world         *simpool.World
	registry      *adapter.Registry
	store         storage.PositionStore
	logger        *zap.Logger
	maxDivergence decimal.Decimal
	now           func() time.Time

	open   map[string]openPosition
	closed []storage.PositionRecord
}

func (s *simulator) apply(ctx context.Context, step simpool.Step) error {
	switch step.Action {
	case simpool.ActionOpen:
		return s.openPosition(ctx, step)
	case simpool.ActionClose:
		return s.closePosition(ctx, step)
	case simpool.ActionAccrueFees:
		if step.Receipt == "" && step.Position != "" {
			pos, ok := s.open[step.Position]
			if !ok || len(pos.record.PoolUnits) == 0 {
				return fmt.Errorf("position %s: %w", step.Position, model.ErrPositionNotFound)
			}
			step.Receipt = pos.record.PoolUnits[0].LocalID
		}
	}
	return s.world.Apply(ctx, step)
}

func (s *simulator) openPosition(ctx context.Context, step simpool.Step) error {
	if step.Position == "" {
		return fmt.Errorf("open needs a position id")
	}
	if _, exists := s.open[step.Position]; exists {
		return fmt.Errorf("position %s is already open", step.Position)
	}
	address, _, err := s.world.Pool(step.Pool)
	if err != nil {
		return err
	}
	a, err := s.registry.ForPool(address)
	if err != nil {
		return err
	}
	bucketA, err := s.world.Bucket(step.A)
	if err != nil {
		return err
	}
	bucketB, err := s.world.Bucket(step.B)
	if err != nil {
		return err
	}

	var (
		lockup model.LockupPeriod
		opts   []adapter.OpenOption
	)
	if step.Lockup != "" {
		if lockup, err = model.ParseLockupPeriod(step.Lockup); err != nil {
			return err
		}
		opts = append(opts, adapter.WithLockupPeriod(lockup))
	}

	price, err := a.Price(ctx, address)
	hasPrice := err == nil
	if err != nil {
		s.logger.Warn("no price at open", zap.String("position", step.Position), zap.Error(err))
	}

	out, err := a.OpenLiquidityPosition(ctx, address, bucketA, bucketB, opts...)
	if err != nil {
		return err
	}

	opened := s.now().UTC()
	record := storage.PositionRecord{
		ID:          step.Position,
		Pool:        address,
		Family:      string(a.Family()),
		PoolUnits:   out.PoolUnits,
		Lockup:      lockup,
		OpenedAt:    opened,
		MaturesAt:   lockup.MaturityFrom(opened),
		AdapterData: model.AdapterDataHex(out.AdapterData),
	}
	if s.store != nil {
		if err := s.store.SavePosition(ctx, record); err != nil {
			return err
		}
	}
	s.open[step.Position] = openPosition{record: record, price: price, hasPrice: hasPrice}

	fields := []zap.Field{
		zap.String("position", step.Position),
		zap.String("pool", step.Pool),
		zap.String("family", record.Family),
		zap.Int("pool_units", len(out.PoolUnits)),
	}
	for resource, change := range out.Change {
		fields = append(fields, zap.String("change_"+resource.Hex(), change.Amount.String()))
	}
	s.logger.Info("position opened", fields...)
	return nil
}

func (s *simulator) closePosition(ctx context.Context, step simpool.Step) error {
	pos, ok := s.open[step.Position]
	if !ok {
		if s.store == nil {
			return fmt.Errorf("position %s: %w", step.Position, model.ErrPositionNotFound)
		}
		record, err := s.store.LoadPosition(ctx, step.Position)
		if err != nil {
			return err
		}
		if record.Closed() {
			return fmt.Errorf("position %s is already closed", step.Position)
		}
		pos = openPosition{record: record}
	}
	record := pos.record

	a, err := s.registry.ForPool(record.Pool)
	if err != nil {
		return err
	}
	raw, err := model.ParseAdapterDataHex(record.AdapterData)
	if err != nil {
		return err
	}

	if pos.hasPrice {
		if current, err := a.Price(ctx, record.Pool); err == nil {
			within, err := pos.price.WithinTolerance(current, s.maxDivergence)
			if err == nil && !within {
				s.logger.Warn("price moved beyond tolerance since open",
					zap.String("position", record.ID),
					zap.String("open_price", pos.price.Price.String()),
					zap.String("close_price", current.Price.String()),
					zap.String("max", s.maxDivergence.String()),
				)
			}
		}
	}

	out, err := a.CloseLiquidityPosition(ctx, record.Pool, record.PoolUnits, raw)
	if err != nil {
		return err
	}

	closedAt := s.now().UTC()
	record.ClosedAt = &closedAt
	record.Resources = make(map[common.Address]decimal.Decimal, len(out.Resources))
	for resource, bucket := range out.Resources {
		record.Resources[resource] = bucket.Amount
	}
	record.Fees = out.Fees
	if s.store != nil {
		if err := s.store.SavePosition(ctx, record); err != nil {
			return err
		}
	}
	delete(s.open, record.ID)
	s.closed = append(s.closed, record)

	fields := []zap.Field{
		zap.String("position", record.ID),
		zap.Bool("matured", !closedAt.Before(record.MaturesAt)),
	}
	for resource, fee := range out.Fees {
		fields = append(fields, zap.String("fee_"+resource.Hex(), fee.String()))
	}
	s.logger.Info("position closed", fields...)
	return nil
}
