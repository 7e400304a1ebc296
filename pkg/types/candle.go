package types

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// Candle is one open/high/low/close/volume observation for a fixed time bucket.
type Candle struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// TypicalPrice returns (high + low + close) / 3.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// IsGreen reports whether the candle closed above its open.
func (c Candle) IsGreen() bool {
	return c.Close > c.Open
}

// IsRed reports whether the candle closed below its open.
func (c Candle) IsRed() bool {
	return c.Close < c.Open
}

// Validate checks the candle's own fields. index is only used for error context.
func (c Candle) Validate(index int) error {
	if c.Time.IsZero() {
		return errors.NewData(errors.ErrCodeInvalidCandle, index, "time", "candle time must be set")
	}

	fields := []struct {
		name  string
		value float64
	}{
		{"open", c.Open},
		{"high", c.High},
		{"low", c.Low},
		{"close", c.Close},
		{"volume", c.Volume},
	}

	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return errors.NewData(errors.ErrCodeInvalidCandle, index, f.name, "value must be a finite number")
		}

		if f.value < 0 {
			return errors.NewData(errors.ErrCodeNegativeValue, index, f.name, "value must not be negative")
		}
	}

	if c.High < c.Low {
		return errors.NewData(errors.ErrCodeInvalidPriceRange, index, "high", "high must not be below low")
	}

	if c.Open < c.Low || c.Open > c.High {
		return errors.NewData(errors.ErrCodeInvalidPriceRange, index, "open", "open must lie within [low, high]")
	}

	if c.Close < c.Low || c.Close > c.High {
		return errors.NewData(errors.ErrCodeInvalidPriceRange, index, "close", "close must lie within [low, high]")
	}

	return nil
}
