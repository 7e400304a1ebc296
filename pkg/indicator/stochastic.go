package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// Stochastic implements the slow stochastic oscillator.
//
// fast %K = 100*(close-LL)/(HH-LL) over fastK candles, 0 when the range is empty.
// The _k column is the slowK-period mean of fast %K, _d is the slowD-period mean of _k.
type Stochastic struct {
	column string
	fastK  int
	slowK  int
	slowD  int
	highs  *window
	lows   *window
	fast   *window
	slow   *window
}

// NewStochastic creates a stochastic oscillator writing to column+"_k" and column+"_d".
func NewStochastic(column string, fastK, slowK, slowD int) *Stochastic {
	return &Stochastic{
		column: column,
		fastK:  fastK,
		slowK:  slowK,
		slowD:  slowD,
		highs:  newWindow(fastK),
		lows:   newWindow(fastK),
		fast:   newWindow(slowK),
		slow:   newWindow(slowD),
	}
}

// Name returns the name of the indicator.
func (s *Stochastic) Name() types.IndicatorType {
	return types.IndicatorTypeStochastic
}

func (s *Stochastic) Columns() []string {
	return []string{s.column + "_k", s.column + "_d"}
}

func (s *Stochastic) Startup() int {
	return s.fastK + s.slowK + s.slowD - 3
}

func (s *Stochastic) Update(c types.Candle, out []float64) {
	s.highs.Push(c.High)
	s.lows.Push(c.Low)

	fastK := math.NaN()

	if s.highs.Full() {
		highest, lowest := s.highs.Max(), s.lows.Min()
		fastK = 0

		if diff := highest - lowest; diff != 0 {
			fastK = 100 * ((c.Close - lowest) / diff)
		}
	}

	// undefined values are pushed too, every window moves in lock-step
	s.fast.Push(fastK)
	slowK := fullMean(s.fast)
	s.slow.Push(slowK)

	out[0] = clamp(slowK, 0, 100)
	out[1] = clamp(fullMean(s.slow), 0, 100)
}

func (s *Stochastic) Replace(c types.Candle, out []float64) {
	s.highs.Undo()
	s.lows.Undo()
	s.fast.Undo()
	s.slow.Undo()
	s.Update(c, out)
}

// fullMean is the window mean, NaN until the window is full or while it holds NaN.
func fullMean(w *window) float64 {
	if !w.Full() {
		return math.NaN()
	}

	return w.Mean()
}
