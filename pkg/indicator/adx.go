package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/pkg/types"
)

type adxState struct {
	count     int
	prevHigh  float64
	prevLow   float64
	prevClose float64
	plusDM    float64
	minusDM   float64
	tr        float64
	sumDX     float64
	adx       float64
}

// ADX implements Wilder's Average Directional Index.
//
// The first value is the mean of period directional indexes, so the column is defined
// from index 2*period-1. The +DI and -DI columns are defined from index period.
type ADX struct {
	column string
	period int
	state  adxState
	saved  adxState
}

// NewADX creates an ADX writing to column, column+"_plus_di" and column+"_minus_di".
func NewADX(column string, period int) *ADX {
	return &ADX{
		column: column,
		period: period,
	}
}

// Name returns the name of the indicator.
func (a *ADX) Name() types.IndicatorType {
	return types.IndicatorTypeADX
}

func (a *ADX) Columns() []string {
	return []string{a.column, a.column + "_plus_di", a.column + "_minus_di"}
}

func (a *ADX) Startup() int {
	return 2*a.period - 1
}

func (a *ADX) Update(c types.Candle, out []float64) {
	a.saved = a.state
	s := &a.state
	s.count++

	fillNaN(out)

	if s.count == 1 {
		s.prevHigh, s.prevLow, s.prevClose = c.High, c.Low, c.Close

		return
	}

	plusDM, minusDM := directionalMove(c.High-s.prevHigh, s.prevLow-c.Low)
	tr := trueRange(c.High, c.Low, s.prevClose)
	s.prevHigh, s.prevLow, s.prevClose = c.High, c.Low, c.Close

	period := float64(a.period)

	// the first period-1 moves are summed raw, later ones are Wilder-smoothed
	if s.count <= a.period {
		s.plusDM += plusDM
		s.minusDM += minusDM
		s.tr += tr

		return
	}

	s.plusDM = s.plusDM - s.plusDM/period + plusDM
	s.minusDM = s.minusDM - s.minusDM/period + minusDM
	s.tr = s.tr - s.tr/period + tr

	if isZero(s.tr) {
		if s.count >= 2*a.period {
			out[0] = a.finish()
		}

		return
	}

	plusDI := 100.0 * (s.plusDM / s.tr)
	minusDI := 100.0 * (s.minusDM / s.tr)
	out[1] = plusDI
	out[2] = minusDI

	diSum := plusDI + minusDI
	dx, ok := 0.0, !isZero(diSum)

	if ok {
		dx = 100.0 * (math.Abs(minusDI-plusDI) / diSum)
	}

	switch {
	case s.count < 2*a.period:
		s.sumDX += dx
	case s.count == 2*a.period:
		s.sumDX += dx
		out[0] = a.finish()
	default:
		if ok {
			s.adx = (s.adx*(period-1) + dx) / period
		}

		out[0] = clamp(s.adx, 0, 100)
	}
}

// finish seeds the average once period directional indexes are summed and returns the current value.
func (a *ADX) finish() float64 {
	s := &a.state
	if s.count == 2*a.period {
		s.adx = s.sumDX / float64(a.period)
	}

	return clamp(s.adx, 0, 100)
}

func (a *ADX) Replace(c types.Candle, out []float64) {
	a.state = a.saved
	a.Update(c, out)
}

// directionalMove keeps only the dominant move of the bar, as Wilder defines +DM and -DM.
func directionalMove(up, down float64) (plusDM, minusDM float64) {
	switch {
	case down > 0 && up < down:
		return 0, down
	case up > 0 && up > down:
		return up, 0
	default:
		return 0, 0
	}
}
