package types

import "time"

// ExitState is the state of an open position in the exit state machine.
type ExitState string

const (
	// ExitStateHolding keeps the position open
	ExitStateHolding ExitState = "HOLDING"
	// ExitStateROI closes the position because the active ROI floor was reached
	ExitStateROI ExitState = "ROI_EXIT"
	// ExitStateStopLoss closes the position because the fixed stop-loss was hit
	ExitStateStopLoss ExitState = "STOPLOSS_EXIT"
	// ExitStateTrailing closes the position because price retraced from its peak
	ExitStateTrailing ExitState = "TRAILING_EXIT"
	// ExitStateSignal closes the position because the rule-based exit flag fired
	ExitStateSignal ExitState = "SIGNAL_EXIT"
)

// IsTerminal reports whether the state closes the position.
func (s ExitState) IsTerminal() bool {
	return s != ExitStateHolding && s != ""
}

// ExitReason is the reason code attached to an exit decision.
type ExitReason string

const (
	ExitReasonNone     ExitReason = ""
	ExitReasonROI      ExitReason = "ROI"
	ExitReasonStopLoss ExitReason = "STOPLOSS"
	ExitReasonTrailing ExitReason = "TRAILING"
	ExitReasonSignal   ExitReason = "SIGNAL"
)

// State returns the terminal state matching the reason.
func (r ExitReason) State() ExitState {
	switch r {
	case ExitReasonROI:
		return ExitStateROI
	case ExitReasonStopLoss:
		return ExitStateStopLoss
	case ExitReasonTrailing:
		return ExitStateTrailing
	case ExitReasonSignal:
		return ExitStateSignal
	default:
		return ExitStateHolding
	}
}

// ActionType is the kind of entry in the final action stream.
type ActionType string

const (
	ActionTypeEnter ActionType = "enter"
	ActionTypeExit  ActionType = "exit"
)

// Action is one entry in the merged action stream produced by a caller.
type Action struct {
	// Index is the candle index that produced the action
	Index int `yaml:"index" json:"index"`
	// Time is the time of the observation
	Time time.Time `yaml:"time" json:"time"`
	// Type is the kind of action
	Type ActionType `yaml:"type" json:"type"`
	// Price is the price the action was decided at
	Price float64 `yaml:"price" json:"price"`
	// Reason is set for exits
	Reason ExitReason `yaml:"reason,omitempty" json:"reason,omitempty"`
	// PositionID links the action to its position
	PositionID string `yaml:"position_id" json:"position_id"`
	// Symbol is the instrument
	Symbol string `yaml:"symbol" json:"symbol"`
}
