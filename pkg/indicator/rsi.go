package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/pkg/types"
)

type rsiState struct {
	count   int
	prev    float64
	avgGain float64
	avgLoss float64
}

// RSI implements the Relative Strength Index with Wilder smoothing.
type RSI struct {
	column string
	period int
	source types.PriceSource
	state  rsiState
	saved  rsiState
}

// NewRSI creates a new RSI indicator writing to column.
func NewRSI(column string, period int, source types.PriceSource) *RSI {
	return &RSI{
		column: column,
		period: period,
		source: source,
	}
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

func (r *RSI) Columns() []string {
	return []string{r.column}
}

// Startup is period: the first value needs period price changes.
func (r *RSI) Startup() int {
	return r.period
}

func (r *RSI) Update(c types.Candle, out []float64) {
	r.saved = r.state
	out[0] = r.push(sourceValue(r.source, c))
}

func (r *RSI) Replace(c types.Candle, out []float64) {
	r.state = r.saved
	r.Update(c, out)
}

func (r *RSI) push(v float64) float64 {
	s := &r.state
	s.count++

	if s.count == 1 {
		s.prev = v

		return math.NaN()
	}

	change := v - s.prev
	s.prev = v

	gain, loss := 0.0, 0.0
	if change < 0 {
		loss = -change
	} else {
		gain = change
	}

	period := float64(r.period)

	switch {
	case s.count <= r.period:
		s.avgGain += gain
		s.avgLoss += loss

		return math.NaN()
	case s.count == r.period+1:
		s.avgGain = (s.avgGain + gain) / period
		s.avgLoss = (s.avgLoss + loss) / period
	default:
		s.avgGain = (s.avgGain*(period-1) + gain) / period
		s.avgLoss = (s.avgLoss*(period-1) + loss) / period
	}

	if s.avgLoss == 0 {
		return 100
	}

	return clamp(100*(s.avgGain/(s.avgGain+s.avgLoss)), 0, 100)
}
