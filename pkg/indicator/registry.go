package indicator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// Factory builds a fresh indicator instance from its configuration.
// Zero-valued parameters have already been replaced by the indicator's defaults.
type Factory func(cfg types.IndicatorConfig) (Indicator, error)

// IndicatorRegistry manages all available indicator families.
type IndicatorRegistry interface {
	RegisterIndicator(name types.IndicatorType, factory Factory) error
	GetIndicator(name types.IndicatorType) (Factory, error)
	ListIndicators() []types.IndicatorType
	RemoveIndicator(name types.IndicatorType) error
	// Build validates cfg and returns a new, empty indicator instance.
	Build(cfg types.IndicatorConfig) (Indicator, error)
}

// IndicatorRegistryV1 manages all available indicator families.
type IndicatorRegistryV1 struct {
	factories map[types.IndicatorType]Factory
	mu        sync.RWMutex
}

// NewIndicatorRegistry creates an empty indicator registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &IndicatorRegistryV1{
		factories: make(map[types.IndicatorType]Factory),
		mu:        sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry holding every built-in indicator family.
func NewDefaultRegistry() IndicatorRegistry {
	r := NewIndicatorRegistry()

	for name, factory := range builtins {
		// names are unique in builtins, registration cannot fail
		_ = r.RegisterIndicator(name, factory)
	}

	return r
}

// RegisterIndicator adds an indicator family to the registry.
func (r *IndicatorRegistryV1) RegisterIndicator(name types.IndicatorType, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.NewIndicator(errors.ErrCodeIndicatorAlreadyExists, string(name),
			fmt.Sprintf("RegisterIndicator: indicator with name %s already registered", name))
	}

	r.factories[name] = factory

	return nil
}

// GetIndicator retrieves an indicator factory by name.
func (r *IndicatorRegistryV1) GetIndicator(name types.IndicatorType) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, errors.NewIndicator(errors.ErrCodeIndicatorNotFound, string(name),
			fmt.Sprintf("GetIndicator: indicator with name %s not found", name))
	}

	return factory, nil
}

// ListIndicators returns all registered indicator names in sorted order.
func (r *IndicatorRegistryV1) ListIndicators() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

// RemoveIndicator removes an indicator family from the registry.
func (r *IndicatorRegistryV1) RemoveIndicator(name types.IndicatorType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; !exists {
		return errors.NewIndicator(errors.ErrCodeIndicatorNotFound, string(name),
			fmt.Sprintf("RemoveIndicator: indicator with name %s not found", name))
	}

	delete(r.factories, name)

	return nil
}

// Build implements IndicatorRegistry.
func (r *IndicatorRegistryV1) Build(cfg types.IndicatorConfig) (Indicator, error) {
	if cfg.Name == "" {
		return nil, errors.NewConfig(errors.ErrCodeInvalidConfiguration, "name", "indicator name must not be empty")
	}

	factory, err := r.GetIndicator(cfg.Type)
	if err != nil {
		cfgErr := errors.NewConfig(errors.ErrCodeInvalidConfiguration, "type",
			fmt.Sprintf("unknown indicator type %q", cfg.Type))
		cfgErr.Indicator = cfg.Name
		cfgErr.Cause = err

		return nil, cfgErr
	}

	if cfg.Period < 0 || cfg.FastPeriod < 0 || cfg.SlowPeriod < 0 || cfg.SignalPeriod < 0 {
		return nil, invalidConfig(cfg, errors.ErrCodeInvalidPeriod, "period", "periods must not be negative")
	}

	if cfg.StdDev < 0 {
		return nil, invalidConfig(cfg, errors.ErrCodeInvalidStdDev, "std_dev", "std_dev must not be negative")
	}

	if _, ok := cfg.Source.Value(types.Candle{}); !ok {
		return nil, invalidConfig(cfg, errors.ErrCodeInvalidSource, "source",
			fmt.Sprintf("unknown price source %q", cfg.Source))
	}

	return factory(cfg)
}

func invalidConfig(cfg types.IndicatorConfig, code errors.ErrorCode, field, message string) error {
	err := errors.NewConfig(code, field, message)
	err.Indicator = cfg.Name

	return err
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}

	return v
}

var builtins = map[types.IndicatorType]Factory{
	types.IndicatorTypeSMA: func(cfg types.IndicatorConfig) (Indicator, error) {
		return NewMA(cfg.Name, orDefault(cfg.Period, 20), cfg.Source), nil
	},
	types.IndicatorTypeEMA: func(cfg types.IndicatorConfig) (Indicator, error) {
		return NewEMA(cfg.Name, orDefault(cfg.Period, 20), cfg.Source), nil
	},
	types.IndicatorTypeRSI: func(cfg types.IndicatorConfig) (Indicator, error) {
		return NewRSI(cfg.Name, orDefault(cfg.Period, 14), cfg.Source), nil
	},
	types.IndicatorTypeMACD: func(cfg types.IndicatorConfig) (Indicator, error) {
		fast := orDefault(cfg.FastPeriod, 12)
		slow := orDefault(cfg.SlowPeriod, 26)

		if fast >= slow {
			return nil, invalidConfig(cfg, errors.ErrCodeInvalidPeriod, "fast_period",
				fmt.Sprintf("fast_period (%d) must be smaller than slow_period (%d)", fast, slow))
		}

		return NewMACD(cfg.Name, fast, slow, orDefault(cfg.SignalPeriod, 9), cfg.Source), nil
	},
	types.IndicatorTypeBollingerBands: func(cfg types.IndicatorConfig) (Indicator, error) {
		k := cfg.StdDev
		if k == 0 {
			k = 2.0
		}

		return NewBollingerBands(cfg.Name, orDefault(cfg.Period, 20), k, cfg.Source, cfg.SampleStdDev), nil
	},
	types.IndicatorTypeADX: func(cfg types.IndicatorConfig) (Indicator, error) {
		return NewADX(cfg.Name, orDefault(cfg.Period, 14)), nil
	},
	types.IndicatorTypeATR: func(cfg types.IndicatorConfig) (Indicator, error) {
		return NewATR(cfg.Name, orDefault(cfg.Period, 14)), nil
	},
	// period is the %K lookback, slow_period smooths %K and signal_period smooths %D
	types.IndicatorTypeStochastic: func(cfg types.IndicatorConfig) (Indicator, error) {
		return NewStochastic(cfg.Name, orDefault(cfg.Period, 14), orDefault(cfg.SlowPeriod, 3), orDefault(cfg.SignalPeriod, 3)), nil
	},
	types.IndicatorTypeVolumeMean: func(cfg types.IndicatorConfig) (Indicator, error) {
		return NewVolumeMean(cfg.Name, orDefault(cfg.Period, 20)), nil
	},
	types.IndicatorTypeVolumeRatio: func(cfg types.IndicatorConfig) (Indicator, error) {
		return NewVolumeRatio(cfg.Name, orDefault(cfg.Period, 20)), nil
	},
	types.IndicatorTypePriceChange: func(cfg types.IndicatorConfig) (Indicator, error) {
		return NewPriceChange(cfg.Name, orDefault(cfg.Period, 5), cfg.Source), nil
	},
	types.IndicatorTypeLowerWick: func(cfg types.IndicatorConfig) (Indicator, error) {
		return NewLowerWick(cfg.Name), nil
	},
}
