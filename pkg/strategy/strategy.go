package strategy

import (
	"fmt"

	"github.com/rxtech-lab/argo-signal/internal/version"
	"github.com/rxtech-lab/argo-signal/pkg/exit"
	"github.com/rxtech-lab/argo-signal/pkg/indicator"
	"github.com/rxtech-lab/argo-signal/pkg/marketdata"
	"github.com/rxtech-lab/argo-signal/pkg/rule"
)

// Options controls how a Config is assembled.
type Options struct {
	// Registry resolves indicator types. Nil means the built-in families.
	Registry indicator.IndicatorRegistry
	// Scorers resolves score nodes by model name.
	Scorers rule.Scorers
	// EngineVersion is checked against the config's engine constraint. Empty means the running engine.
	EngineVersion string
}

// Strategy is a validated, ready to run strategy. It is immutable and safe to share
// between goroutines evaluating different instruments.
type Strategy struct {
	Config    Config
	Timeframe marketdata.Timespan
	Pipeline  *indicator.Pipeline
	Rules     *rule.RuleSet
	Policy    *exit.RiskPolicy
	// Startup is the number of leading candles that never signal.
	Startup int
}

// Build validates cfg and assembles its pipeline, rule set and risk policy.
func Build(cfg *Config, opts Options) (*Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engineVersion := opts.EngineVersion
	if engineVersion == "" {
		engineVersion = version.GetVersion()
	}

	if err := version.CheckConstraint(engineVersion, cfg.Engine); err != nil {
		return nil, fmt.Errorf("strategy %s: %w", cfg.Name, err)
	}

	timeframe, err := marketdata.ParseTimespan(cfg.Timeframe)
	if err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = indicator.NewDefaultRegistry()
	}

	pipeline, err := indicator.NewPipeline(registry, cfg.Indicators...)
	if err != nil {
		return nil, err
	}

	rules, err := rule.CompileRuleSet(cfg.Name, cfg.Entry, cfg.Exit, rule.CompileOptions{
		Columns: pipeline.Columns(),
		Scorers: opts.Scorers,
	})
	if err != nil {
		return nil, err
	}

	riskConfig, err := cfg.RiskConfig()
	if err != nil {
		return nil, err
	}

	policy, err := exit.NewRiskPolicy(riskConfig)
	if err != nil {
		return nil, err
	}

	return &Strategy{
		Config:    *cfg,
		Timeframe: timeframe,
		Pipeline:  pipeline,
		Rules:     rules,
		Policy:    policy,
		Startup:   max(pipeline.Startup(), cfg.StartupCandleCount),
	}, nil
}

// Name returns the strategy name.
func (s *Strategy) Name() string {
	return s.Config.Name
}

// NewMachine returns an exit machine applying the strategy's risk policy.
func (s *Strategy) NewMachine() *exit.Machine {
	return exit.NewMachine(s.Policy)
}
