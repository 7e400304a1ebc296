package types

import (
	"time"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// Series is an ordered, gap-tolerant sequence of candles for one instrument at one timeframe.
//
// History is immutable: Append adds a strictly later candle and ReplaceLast swaps the
// still-forming final candle. A Series is not safe for concurrent mutation.
type Series struct {
	symbol    string
	timeframe time.Duration
	candles   []Candle
}

// NewSeries validates every candle and returns a Series owning a copy of them.
// Any malformed candle rejects the whole series.
func NewSeries(symbol string, timeframe time.Duration, candles []Candle) (*Series, error) {
	if timeframe < 0 {
		return nil, errors.NewConfig(errors.ErrCodeInvalidTimeframe, "timeframe", "timeframe must not be negative")
	}

	for i, c := range candles {
		if err := c.Validate(i); err != nil {
			return nil, err
		}

		if i > 0 && !c.Time.After(candles[i-1].Time) {
			return nil, errors.NewData(errors.ErrCodeNonMonotonicTime, i, "time", "timestamps must be strictly increasing")
		}
	}

	owned := make([]Candle, len(candles))
	copy(owned, candles)

	return &Series{
		symbol:    symbol,
		timeframe: timeframe,
		candles:   owned,
	}, nil
}

// Symbol returns the instrument the series belongs to.
func (s *Series) Symbol() string {
	return s.symbol
}

// Timeframe returns the sampling interval.
func (s *Series) Timeframe() time.Duration {
	return s.timeframe
}

// Len returns the number of candles.
func (s *Series) Len() int {
	return len(s.candles)
}

// At returns the candle at index i.
func (s *Series) At(i int) Candle {
	return s.candles[i]
}

// Last returns the final candle and false when the series is empty.
func (s *Series) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}

	return s.candles[len(s.candles)-1], true
}

// Candles returns a copy of the candles.
func (s *Series) Candles() []Candle {
	out := make([]Candle, len(s.candles))
	copy(out, s.candles)

	return out
}

// Head returns a new series holding the first n candles.
func (s *Series) Head(n int) *Series {
	if n > len(s.candles) {
		n = len(s.candles)
	}

	if n < 0 {
		n = 0
	}

	owned := make([]Candle, n)
	copy(owned, s.candles[:n])

	return &Series{symbol: s.symbol, timeframe: s.timeframe, candles: owned}
}

// Append adds a candle that must be strictly later than the current last candle.
func (s *Series) Append(c Candle) error {
	index := len(s.candles)
	if err := c.Validate(index); err != nil {
		return err
	}

	if last, ok := s.Last(); ok && !c.Time.After(last.Time) {
		return errors.NewData(errors.ErrCodeNonMonotonicTime, index, "time", "appended candle must be later than the last candle")
	}

	s.candles = append(s.candles, c)

	return nil
}

// ReplaceLast replaces the in-progress final candle. The replacement must carry the same timestamp.
func (s *Series) ReplaceLast(c Candle) error {
	last, ok := s.Last()
	if !ok {
		return errors.NewData(errors.ErrCodeEmptySeries, 0, "", "cannot replace the last candle of an empty series")
	}

	index := len(s.candles) - 1
	if err := c.Validate(index); err != nil {
		return err
	}

	if !c.Time.Equal(last.Time) {
		return errors.NewData(errors.ErrCodeNonMonotonicTime, index, "time", "replacement candle must keep the timestamp of the last candle")
	}

	s.candles[index] = c

	return nil
}
