// Package exit decides when an open position must be closed for risk reasons.
//
// A RiskPolicy combines a time-decaying minimum ROI ladder, a fixed stop-loss and a
// trailing stop. The Machine applies it to price observations of one position at a
// time; the only state it keeps lives in the position itself.
package exit

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// DefaultPriority resolves simultaneous exits: the stop-loss is never shadowed.
var DefaultPriority = []types.ExitReason{
	types.ExitReasonStopLoss,
	types.ExitReasonROI,
	types.ExitReasonTrailing,
}

// ROIStep is one rung of the minimum ROI ladder: from After elapsed, a return of ROI closes the position.
type ROIStep struct {
	After time.Duration
	ROI   float64
}

// TrailingConfig configures the trailing stop. Offset and Distance are fractions of the entry price.
type TrailingConfig struct {
	Enabled bool
	// OnlyOffsetIsReached keeps trailing inactive until the return has reached Offset once.
	OnlyOffsetIsReached bool
	Offset              float64
	Distance            float64
}

// Config is the raw form of a RiskPolicy.
type Config struct {
	ROI      []ROIStep
	StopLoss float64
	Trailing TrailingConfig
	// Priority overrides DefaultPriority; it must list STOPLOSS, ROI and TRAILING once each.
	Priority []types.ExitReason
}

type roiStep struct {
	after time.Duration
	roi   decimal.Decimal
}

// RiskPolicy is the validated, immutable exit configuration of a strategy.
type RiskPolicy struct {
	ladder   []roiStep
	stopLoss decimal.Decimal
	trailing TrailingConfig
	offset   decimal.Decimal
	distance decimal.Decimal
	priority []types.ExitReason
}

// NewRiskPolicy validates cfg and returns the policy.
func NewRiskPolicy(cfg Config) (*RiskPolicy, error) {
	if len(cfg.ROI) == 0 {
		return nil, errors.NewConfig(errors.ErrCodeEmptyROILadder, "minimal_roi", "ROI ladder must have at least one step")
	}

	policy := &RiskPolicy{trailing: cfg.Trailing}
	seen := make(map[time.Duration]bool, len(cfg.ROI))

	for _, step := range cfg.ROI {
		if step.After < 0 {
			return nil, errors.NewConfig(errors.ErrCodeInvalidROILadder, "minimal_roi",
				fmt.Sprintf("ROI step threshold %s must not be negative", step.After))
		}

		if seen[step.After] {
			return nil, errors.NewConfig(errors.ErrCodeInvalidROILadder, "minimal_roi",
				fmt.Sprintf("duplicate ROI step threshold %s", step.After))
		}

		if !finite(step.ROI) {
			return nil, errors.NewConfig(errors.ErrCodeInvalidROILadder, "minimal_roi",
				fmt.Sprintf("ROI at %s must be a finite number", step.After))
		}

		seen[step.After] = true
		policy.ladder = append(policy.ladder, roiStep{after: step.After, roi: decimal.NewFromFloat(step.ROI)})
	}

	sort.Slice(policy.ladder, func(i, j int) bool { return policy.ladder[i].after > policy.ladder[j].after })

	if !finite(cfg.StopLoss) || cfg.StopLoss >= 0 || cfg.StopLoss <= -1 {
		return nil, errors.NewConfig(errors.ErrCodeInvalidStopLoss, "stoploss",
			fmt.Sprintf("stoploss must lie in (-1, 0), got %v", cfg.StopLoss))
	}

	policy.stopLoss = decimal.NewFromFloat(cfg.StopLoss)

	if cfg.Trailing.Enabled {
		if !finite(cfg.Trailing.Distance) || cfg.Trailing.Distance <= 0 {
			return nil, errors.NewConfig(errors.ErrCodeInvalidTrailing, "trailing.positive",
				fmt.Sprintf("trailing distance must be positive, got %v", cfg.Trailing.Distance))
		}

		if !finite(cfg.Trailing.Offset) || cfg.Trailing.Offset < 0 {
			return nil, errors.NewConfig(errors.ErrCodeInvalidTrailing, "trailing.positive_offset",
				fmt.Sprintf("trailing offset must not be negative, got %v", cfg.Trailing.Offset))
		}

		policy.offset = decimal.NewFromFloat(cfg.Trailing.Offset)
		policy.distance = decimal.NewFromFloat(cfg.Trailing.Distance)
	}

	priority, err := validatePriority(cfg.Priority)
	if err != nil {
		return nil, err
	}

	policy.priority = priority

	return policy, nil
}

func validatePriority(priority []types.ExitReason) ([]types.ExitReason, error) {
	if len(priority) == 0 {
		return append([]types.ExitReason(nil), DefaultPriority...), nil
	}

	if len(priority) != len(DefaultPriority) {
		return nil, errors.NewConfig(errors.ErrCodeInvalidPriority, "exit_priority",
			fmt.Sprintf("exit priority must list %v exactly once, got %v", DefaultPriority, priority))
	}

	seen := make(map[types.ExitReason]bool, len(priority))

	for _, reason := range priority {
		switch reason {
		case types.ExitReasonStopLoss, types.ExitReasonROI, types.ExitReasonTrailing:
		default:
			return nil, errors.NewConfig(errors.ErrCodeInvalidPriority, "exit_priority",
				fmt.Sprintf("unknown exit reason %q", reason))
		}

		if seen[reason] {
			return nil, errors.NewConfig(errors.ErrCodeInvalidPriority, "exit_priority",
				fmt.Sprintf("exit reason %s listed twice", reason))
		}

		seen[reason] = true
	}

	return append([]types.ExitReason(nil), priority...), nil
}

// TargetAt returns the minimum ROI active after elapsed: the step with the largest
// threshold not exceeding elapsed. ok is false before the first step.
func (p *RiskPolicy) TargetAt(elapsed time.Duration) (roi float64, ok bool) {
	step, ok := p.stepAt(elapsed)
	if !ok {
		return 0, false
	}

	return step.roi.InexactFloat64(), true
}

func (p *RiskPolicy) stepAt(elapsed time.Duration) (roiStep, bool) {
	for _, step := range p.ladder {
		if step.after <= elapsed {
			return step, true
		}
	}

	return roiStep{}, false
}

// Ladder returns the ROI steps ordered by descending threshold.
func (p *RiskPolicy) Ladder() []ROIStep {
	out := make([]ROIStep, len(p.ladder))
	for i, step := range p.ladder {
		out[i] = ROIStep{After: step.after, ROI: step.roi.InexactFloat64()}
	}

	return out
}

// StopLoss returns the stop-loss fraction.
func (p *RiskPolicy) StopLoss() float64 {
	return p.stopLoss.InexactFloat64()
}

// Trailing returns the trailing stop configuration.
func (p *RiskPolicy) Trailing() TrailingConfig {
	return p.trailing
}

// Priority returns the order in which simultaneous exit reasons win.
func (p *RiskPolicy) Priority() []types.ExitReason {
	return append([]types.ExitReason(nil), p.priority...)
}

// MaxHold returns the threshold of the last ladder step.
func (p *RiskPolicy) MaxHold() time.Duration {
	return p.ladder[0].after
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
