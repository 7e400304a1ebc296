package exit

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// Decision is the outcome of one price observation.
type Decision struct {
	State  types.ExitState  `yaml:"state" json:"state"`
	Reason types.ExitReason `yaml:"reason,omitempty" json:"reason,omitempty"`
	// ROI is the return of the position at the observed price.
	ROI     float64       `yaml:"roi" json:"roi"`
	Elapsed time.Duration `yaml:"elapsed" json:"elapsed"`
	// Fired lists every condition that held, in priority order. Reason is its first element.
	Fired []types.ExitReason `yaml:"fired,omitempty" json:"fired,omitempty"`
}

// Machine applies a RiskPolicy to open positions.
// It holds no per-position state and may be shared; each Position must be observed by one goroutine.
type Machine struct {
	policy *RiskPolicy
}

// NewMachine returns a machine applying policy to the positions it opens and observes.
func NewMachine(policy *RiskPolicy) *Machine {
	return &Machine{policy: policy}
}

// Policy returns the policy the machine applies.
func (m *Machine) Policy() *RiskPolicy {
	return m.policy
}

// Open creates a position entered at price and time. A zero side means long.
func (m *Machine) Open(symbol string, side types.PositionSide, price float64, at time.Time) (*types.Position, error) {
	if side == "" {
		side = types.PositionSideLong
	}

	if side != types.PositionSideLong && side != types.PositionSideShort {
		return nil, errors.NewConfig(errors.ErrCodeInvalidConfiguration, "side", fmt.Sprintf("unknown position side %q", side))
	}

	if err := checkEntryPrice(price); err != nil {
		return nil, err
	}

	return &types.Position{
		ID:            uuid.New().String(),
		Symbol:        symbol,
		Side:          side,
		EntryPrice:    price,
		EntryTime:     at,
		HighWaterMark: price,
		LastObserved:  at,
	}, nil
}

// Observe applies one price observation to pos and decides whether it must be closed.
//
// Only the position's mark, trailing activation and last observation time are updated.
// Observations must not go back in time: one earlier than the entry or the previous
// observation is rejected, so a replayed tick cannot ratchet the mark twice.
func (m *Machine) Observe(pos *types.Position, price float64, at time.Time) (Decision, error) {
	if err := checkEntryPrice(pos.EntryPrice); err != nil {
		return Decision{}, err
	}

	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return Decision{}, errors.NewData(errors.ErrCodeInvalidObservation, -1, "price",
			fmt.Sprintf("observed price must be positive, got %v", price))
	}

	if at.Before(pos.EntryTime) {
		return Decision{}, errors.NewData(errors.ErrCodeInvalidObservation, -1, "time",
			fmt.Sprintf("observation at %s precedes entry at %s", at, pos.EntryTime))
	}

	if at.Before(pos.LastObserved) {
		return Decision{}, errors.NewData(errors.ErrCodeInvalidObservation, -1, "time",
			fmt.Sprintf("observation at %s precedes previous observation at %s", at, pos.LastObserved))
	}

	short := pos.Side == types.PositionSideShort
	entry := decimal.NewFromFloat(pos.EntryPrice)
	current := decimal.NewFromFloat(price)

	roi := current.Sub(entry).Div(entry)
	if short {
		roi = roi.Neg()
	}

	elapsed := at.Sub(pos.EntryTime)
	fired := make(map[types.ExitReason]bool, 3)

	if step, ok := m.policy.stepAt(elapsed); ok && roi.GreaterThanOrEqual(step.roi) {
		fired[types.ExitReasonROI] = true
	}

	if roi.LessThanOrEqual(m.policy.stopLoss) {
		fired[types.ExitReasonStopLoss] = true
	}

	if short {
		pos.HighWaterMark = math.Min(pos.HighWaterMark, price)
	} else {
		pos.HighWaterMark = math.Max(pos.HighWaterMark, price)
	}

	pos.LastObserved = at

	if m.trailingFired(pos, entry, current, roi) {
		fired[types.ExitReasonTrailing] = true
	}

	decision := Decision{
		State:   types.ExitStateHolding,
		ROI:     roi.InexactFloat64(),
		Elapsed: elapsed,
	}

	for _, reason := range m.policy.priority {
		if fired[reason] {
			decision.Fired = append(decision.Fired, reason)
		}
	}

	if len(decision.Fired) > 0 {
		decision.Reason = decision.Fired[0]
		decision.State = decision.Reason.State()
	}

	return decision, nil
}

func (m *Machine) trailingFired(pos *types.Position, entry, current, roi decimal.Decimal) bool {
	trailing := m.policy.trailing
	if !trailing.Enabled {
		return false
	}

	if !pos.TrailingActive && (!trailing.OnlyOffsetIsReached || roi.GreaterThanOrEqual(m.policy.offset)) {
		pos.TrailingActive = true
	}

	if !pos.TrailingActive {
		return false
	}

	retrace := decimal.NewFromFloat(pos.HighWaterMark).Sub(current)
	if pos.Side == types.PositionSideShort {
		retrace = retrace.Neg()
	}

	return retrace.Div(entry).GreaterThanOrEqual(m.policy.distance)
}

// Merge folds the rule-based exit flag into a risk decision. Risk reasons keep precedence;
// SIGNAL closes the position when none of them fired.
func Merge(decision Decision, signalExit bool) Decision {
	if !signalExit {
		return decision
	}

	decision.Fired = append(append([]types.ExitReason(nil), decision.Fired...), types.ExitReasonSignal)

	if !decision.State.IsTerminal() {
		decision.Reason = types.ExitReasonSignal
		decision.State = types.ExitStateSignal
	}

	return decision
}

func checkEntryPrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return errors.NewConfig(errors.ErrCodeInvalidEntryPrice, "entry_price",
			fmt.Sprintf("entry price must be positive, got %v", price))
	}

	return nil
}
