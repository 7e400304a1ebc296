package types

import "time"

type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Position is an open trade tracked by the exit state machine.
// It is owned by the caller driving the loop; nothing in this module shares it across goroutines.
type Position struct {
	ID         string       `yaml:"id" json:"id"`
	Symbol     string       `yaml:"symbol" json:"symbol"`
	Side       PositionSide `yaml:"side" json:"side"`
	EntryPrice float64      `yaml:"entry_price" json:"entry_price"`
	EntryTime  time.Time    `yaml:"entry_time" json:"entry_time"`
	// HighWaterMark is the most favourable price observed since entry:
	// the highest price for a long, the lowest for a short.
	HighWaterMark float64 `yaml:"high_water_mark" json:"high_water_mark"`
	// TrailingActive latches once the activation offset has been reached.
	TrailingActive bool `yaml:"trailing_active" json:"trailing_active"`
	// LastObserved is the time of the latest price observation applied to the position.
	LastObserved time.Time `yaml:"last_observed" json:"last_observed"`
}

// ProfitRatio returns the unrealised return of the position at price, sign-adjusted for side.
func (p *Position) ProfitRatio(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}

	if p.Side == PositionSideShort {
		return (p.EntryPrice - price) / p.EntryPrice
	}

	return (price - p.EntryPrice) / p.EntryPrice
}
