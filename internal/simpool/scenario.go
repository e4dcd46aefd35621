package simpool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"liquidityAdapter/internal/model"
	"liquidityAdapter/internal/txn"
)

const (
	FamilyBin             = "bin"
	FamilyTick            = "tick"
	FamilyShortage        = "shortage"
	FamilyConstantProduct = "constant_product"
)

// Step actions. Open and close are carried out by the caller through an
// adapter; the rest change pool state directly.
const (
	ActionOpen       = "open"
	ActionClose      = "close"
	ActionAccrueFees = "accrue_fees"
	ActionSwap       = "swap"
	ActionAdjust     = "adjust"
	ActionSetActive  = "set_active"
)

var ErrUnknownAction = errors.New("unknown scenario action")

// Scenario describes pools, named resources and a sequence of steps.
type Scenario struct {
	Resources map[string]string `yaml:"resources"`
	Pools     []PoolSpec        `yaml:"pools"`
	Steps     []Step            `yaml:"steps"`
}

type BinSpec struct {
	Bin uint32 `yaml:"bin"`
	X   string `yaml:"x"`
	Y   string `yaml:"y"`
}

type SubPoolSpec struct {
	Actual  string `yaml:"actual"`
	Surplus string `yaml:"surplus"`
	Supply  string `yaml:"supply"`
}

type PairStateSpec struct {
	P0           string `yaml:"p0"`
	Shortage     string `yaml:"shortage"`
	TargetRatio  string `yaml:"target_ratio"`
	LastOutgoing int64  `yaml:"last_outgoing"`
	LastOutSpot  string `yaml:"last_out_spot"`
}

type PairConfigSpec struct {
	KIn         string `yaml:"k_in"`
	KOut        string `yaml:"k_out"`
	Fee         string `yaml:"fee"`
	DecayFactor string `yaml:"decay_factor"`
}

// PoolSpec declares one pool. Which fields apply depends on Family.
type PoolSpec struct {
	Name      string `yaml:"name"`
	Family    string `yaml:"family"`
	Address   string `yaml:"address"`
	ResourceX string `yaml:"resource_x"`
	ResourceY string `yaml:"resource_y"`
	Units     string `yaml:"units"`

	// bin
	BinSpan   uint32    `yaml:"bin_span"`
	ActiveBin uint32    `yaml:"active_bin"`
	Price     string    `yaml:"price"`
	Bins      []BinSpec `yaml:"bins"`

	// tick
	ActiveTick int32  `yaml:"active_tick"`
	SqrtPrice  string `yaml:"sqrt_price"`

	// shortage: resource_x is base, resource_y is quote, units is base units
	QuoteUnits string          `yaml:"quote_units"`
	State      PairStateSpec   `yaml:"state"`
	Config     *PairConfigSpec `yaml:"config"`
	BasePool   SubPoolSpec     `yaml:"base_pool"`
	QuotePool  SubPoolSpec     `yaml:"quote_pool"`

	// constant_product
	Fee      string `yaml:"fee"`
	ReserveX string `yaml:"reserve_x"`
	ReserveY string `yaml:"reserve_y"`
	Supply   string `yaml:"supply"`
}

type AmountSpec struct {
	Resource string `yaml:"resource"`
	Amount   string `yaml:"amount"`
}

// Step is one scenario action.
type Step struct {
	Action   string      `yaml:"action"`
	Position string      `yaml:"position"`
	Pool     string      `yaml:"pool"`
	A        *AmountSpec `yaml:"a"`
	B        *AmountSpec `yaml:"b"`
	Lockup   string      `yaml:"lockup"`
	Receipt  string      `yaml:"receipt"`
	Bin      uint32      `yaml:"bin"`
	Tick     int32       `yaml:"tick"`
	Price    string      `yaml:"price"`
	X        string      `yaml:"x"`
	Y        string      `yaml:"y"`
	Resource string      `yaml:"resource"`
	Amount   string      `yaml:"amount"`
	Surplus  string      `yaml:"surplus"`
}

// LoadScenario reads a YAML scenario from path.
func LoadScenario(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(raw)
}

func ParseScenario(raw []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if len(s.Pools) == 0 {
		return Scenario{}, fmt.Errorf("scenario declares no pools")
	}
	return s, nil
}

// World holds the pools built from a scenario, keyed by pool address.
type World struct {
	resources map[string]common.Address
	names     map[string]common.Address
	families  map[common.Address]string

	Bin             map[common.Address]*BinPool
	Tick            map[common.Address]*TickPool
	Shortage        map[common.Address]*ShortagePool
	ConstantProduct map[common.Address]*ConstantProductPool
	PairConfigs     map[common.Address]model.PairConfig
}

// Build creates the scenario's pools.
func (s Scenario) Build() (*World, error) {
	w := &World{
		resources:       make(map[string]common.Address, len(s.Resources)),
		names:           make(map[string]common.Address, len(s.Pools)),
		families:        make(map[common.Address]string, len(s.Pools)),
		Bin:             make(map[common.Address]*BinPool),
		Tick:            make(map[common.Address]*TickPool),
		Shortage:        make(map[common.Address]*ShortagePool),
		ConstantProduct: make(map[common.Address]*ConstantProductPool),
		PairConfigs:     make(map[common.Address]model.PairConfig),
	}
	for name, hex := range s.Resources {
		if !common.IsHexAddress(hex) {
			return nil, fmt.Errorf("resource %s: invalid address %q", name, hex)
		}
		w.resources[name] = common.HexToAddress(hex)
	}

	for _, spec := range s.Pools {
		if err := w.addPool(spec); err != nil {
			return nil, fmt.Errorf("pool %s: %w", spec.Name, err)
		}
	}
	return w, nil
}

func (w *World) addPool(spec PoolSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("missing name")
	}
	if _, ok := w.names[spec.Name]; ok {
		return fmt.Errorf("duplicate name")
	}
	address, err := w.Resource(spec.Address)
	if err != nil {
		return err
	}
	x, err := w.Resource(spec.ResourceX)
	if err != nil {
		return err
	}
	y, err := w.Resource(spec.ResourceY)
	if err != nil {
		return err
	}
	units, err := w.Resource(spec.Units)
	if err != nil {
		return err
	}

	switch spec.Family {
	case FamilyBin:
		price, err := parseDecimal(spec.Price)
		if err != nil {
			return err
		}
		pool := NewBinPool(x, y, units, spec.BinSpan, spec.ActiveBin, price)
		for _, b := range spec.Bins {
			bx, err := parseDecimal(b.X)
			if err != nil {
				return err
			}
			by, err := parseDecimal(b.Y)
			if err != nil {
				return err
			}
			pool.Seed(b.Bin, bx, by)
		}
		w.Bin[address] = pool
	case FamilyTick:
		sqrtPrice, err := parseDecimal(spec.SqrtPrice)
		if err != nil {
			return err
		}
		w.Tick[address] = NewTickPool(x, y, units, spec.ActiveTick, sqrtPrice)
	case FamilyShortage:
		quoteUnits, err := w.Resource(spec.QuoteUnits)
		if err != nil {
			return err
		}
		state, err := spec.State.build()
		if err != nil {
			return err
		}
		pool := NewShortagePool(x, y, units, quoteUnits, state)
		for resource, sub := range map[common.Address]SubPoolSpec{x: spec.BasePool, y: spec.QuotePool} {
			actual, err := parseDecimal(sub.Actual)
			if err != nil {
				return err
			}
			surplus, err := parseDecimal(sub.Surplus)
			if err != nil {
				return err
			}
			supply, err := parseDecimal(sub.Supply)
			if err != nil {
				return err
			}
			if err := pool.Seed(resource, actual, surplus, supply); err != nil {
				return err
			}
		}
		if spec.Config != nil {
			cfg, err := spec.Config.build()
			if err != nil {
				return err
			}
			w.PairConfigs[address] = cfg
		}
		w.Shortage[address] = pool
	case FamilyConstantProduct:
		fee, err := parseDecimal(spec.Fee)
		if err != nil {
			return err
		}
		rx, err := parseDecimal(spec.ReserveX)
		if err != nil {
			return err
		}
		ry, err := parseDecimal(spec.ReserveY)
		if err != nil {
			return err
		}
		supply, err := parseDecimal(spec.Supply)
		if err != nil {
			return err
		}
		pool := NewConstantProductPool(x, y, units, fee)
		pool.Seed(rx, ry, supply)
		w.ConstantProduct[address] = pool
	default:
		return fmt.Errorf("unknown family %q", spec.Family)
	}

	w.names[spec.Name] = address
	w.families[address] = spec.Family
	return nil
}

func (s PairStateSpec) build() (model.PairState, error) {
	var (
		state model.PairState
		err   error
	)
	if state.P0, err = parseDecimal(s.P0); err != nil {
		return state, err
	}
	if state.TargetRatio, err = parseDecimal(s.TargetRatio); err != nil {
		return state, err
	}
	if state.LastOutSpot, err = parseDecimal(s.LastOutSpot); err != nil {
		return state, err
	}
	if s.Shortage != "" {
		if state.Shortage, err = model.ParseShortage(s.Shortage); err != nil {
			return state, err
		}
	}
	state.LastOutgoing = s.LastOutgoing
	return state, nil
}

func (s PairConfigSpec) build() (model.PairConfig, error) {
	var (
		cfg model.PairConfig
		err error
	)
	if cfg.KIn, err = parseDecimal(s.KIn); err != nil {
		return cfg, err
	}
	if cfg.KOut, err = parseDecimal(s.KOut); err != nil {
		return cfg, err
	}
	if cfg.Fee, err = parseDecimal(s.Fee); err != nil {
		return cfg, err
	}
	if cfg.DecayFactor, err = parseDecimal(s.DecayFactor); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Resource resolves a named resource or a hex address.
func (w *World) Resource(ref string) (common.Address, error) {
	if address, ok := w.resources[ref]; ok {
		return address, nil
	}
	if !common.IsHexAddress(ref) {
		return common.Address{}, fmt.Errorf("unknown resource %q", ref)
	}
	return common.HexToAddress(ref), nil
}

// Pool returns the address and family of the named pool.
func (w *World) Pool(name string) (common.Address, string, error) {
	address, ok := w.names[name]
	if !ok {
		return common.Address{}, "", fmt.Errorf("unknown pool %q", name)
	}
	return address, w.families[address], nil
}

// Bucket builds a bucket from an amount spec.
func (w *World) Bucket(spec *AmountSpec) (model.Bucket, error) {
	if spec == nil {
		return model.Bucket{}, fmt.Errorf("missing amount")
	}
	resource, err := w.Resource(spec.Resource)
	if err != nil {
		return model.Bucket{}, err
	}
	amount, err := parseDecimal(spec.Amount)
	if err != nil {
		return model.Bucket{}, err
	}
	return model.NewBucket(resource, amount), nil
}

// Participants returns every pool in a stable order for txn.Run.
func (w *World) Participants() []txn.Participant {
	addresses := make([]common.Address, 0, len(w.families))
	for address := range w.families {
		addresses = append(addresses, address)
	}
	sort.Slice(addresses, func(i, j int) bool { return addresses[i].Hex() < addresses[j].Hex() })

	out := make([]txn.Participant, 0, len(addresses))
	for _, address := range addresses {
		switch w.families[address] {
		case FamilyBin:
			out = append(out, w.Bin[address])
		case FamilyTick:
			out = append(out, w.Tick[address])
		case FamilyShortage:
			out = append(out, w.Shortage[address])
		case FamilyConstantProduct:
			out = append(out, w.ConstantProduct[address])
		}
	}
	return out
}

// Apply carries out a pool-state step.
func (w *World) Apply(ctx context.Context, step Step) error {
	address, family, err := w.Pool(step.Pool)
	if err != nil {
		return err
	}

	switch step.Action {
	case ActionAccrueFees:
		x, err := parseDecimal(step.X)
		if err != nil {
			return err
		}
		y, err := parseDecimal(step.Y)
		if err != nil {
			return err
		}
		switch family {
		case FamilyBin:
			w.Bin[address].AccrueFees(step.Bin, x, y)
			return nil
		case FamilyTick:
			return w.Tick[address].AccrueFees(step.Receipt, x, y)
		}
	case ActionSwap:
		if family == FamilyConstantProduct {
			input, err := w.Bucket(&AmountSpec{Resource: step.Resource, Amount: step.Amount})
			if err != nil {
				return err
			}
			_, err = w.ConstantProduct[address].Swap(ctx, input)
			return err
		}
	case ActionAdjust:
		if family == FamilyShortage {
			resource, err := w.Resource(step.Resource)
			if err != nil {
				return err
			}
			actual, err := parseDecimal(step.Amount)
			if err != nil {
				return err
			}
			surplus, err := parseDecimal(step.Surplus)
			if err != nil {
				return err
			}
			return w.Shortage[address].Adjust(resource, actual, surplus)
		}
	case ActionSetActive:
		if family == FamilyBin {
			price, err := parseDecimal(step.Price)
			if err != nil {
				return err
			}
			w.Bin[address].SetActive(step.Bin, price)
			return nil
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, step.Action)
	}
	return fmt.Errorf("action %s does not apply to %s pool %s", step.Action, family, step.Pool)
}

// parseDecimal treats an empty string as zero.
func parseDecimal(input string) (decimal.Decimal, error) {
	if input == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", input, err)
	}
	return d, nil
}
