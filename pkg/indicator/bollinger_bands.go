package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// BollingerBands implements Bollinger Bands over a configurable source.
//
// Columns, all prefixed with the configured name:
//
//	_lowerband, _middleband, _upperband  the bands themselves
//	_percent                             position of the close inside the band, 0 at lower and 1 at upper
//	_width                               (upper-lower)/middle
//
// When the band collapses (upper-lower is not strictly positive) _percent and _width are NaN.
type BollingerBands struct {
	column string
	period int
	stdDev float64
	source types.PriceSource
	ddof   int
	values *window
}

// NewBollingerBands creates Bollinger Bands k standard deviations around the simple mean.
// sample selects the n-1 deviation instead of the population one.
func NewBollingerBands(column string, period int, k float64, source types.PriceSource, sample bool) *BollingerBands {
	b := &BollingerBands{
		column: column,
		period: period,
		stdDev: k,
		source: source,
		values: newWindow(period),
	}

	if sample {
		b.ddof = 1
	}

	return b
}

// Name returns the name of the indicator.
func (b *BollingerBands) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

func (b *BollingerBands) Columns() []string {
	return []string{
		b.column + "_lowerband",
		b.column + "_middleband",
		b.column + "_upperband",
		b.column + "_percent",
		b.column + "_width",
	}
}

func (b *BollingerBands) Startup() int {
	return b.period - 1
}

func (b *BollingerBands) Update(c types.Candle, out []float64) {
	b.values.Push(sourceValue(b.source, c))

	if !b.values.Full() {
		fillNaN(out)

		return
	}

	middle := b.values.Mean()
	deviation := b.values.StdDev(middle, b.ddof) * b.stdDev
	lower := middle - deviation
	upper := middle + deviation

	out[0] = lower
	out[1] = middle
	out[2] = upper

	width := upper - lower
	if !(width > bandEpsilon*math.Max(math.Abs(middle), 1)) {
		out[3] = math.NaN()
		out[4] = math.NaN()

		return
	}

	out[3] = (c.Close - lower) / width
	out[4] = ratio(width, middle)
}

func (b *BollingerBands) Replace(c types.Candle, out []float64) {
	b.values.Undo()
	b.Update(c, out)
}
