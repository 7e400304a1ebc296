package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// Indicator is an incremental, windowed transform over a candle stream.
//
// Update consumes the next candle and writes one value per column into out.
// Replace re-runs the last step with a corrected version of the final candle, so
// feeding a still-forming candle and then replacing it ends in exactly the state
// reached by feeding the final candle directly. Values that need more history than
// has been seen are NaN.
type Indicator interface {
	// Name returns the indicator family
	Name() types.IndicatorType
	// Columns returns the output column names, in the order Update writes them
	Columns() []string
	// Startup returns how many leading candles may produce undefined values
	Startup() int
	// Update appends one candle
	Update(c types.Candle, out []float64)
	// Replace replaces the most recently appended candle
	Replace(c types.Candle, out []float64)
}

// bandEpsilon is the relative width under which a band is treated as collapsed.
const bandEpsilon = 1e-10

// isZero mirrors TA-Lib's tolerance for "effectively zero" divisors.
func isZero(v float64) bool {
	return -1e-14 < v && v < 1e-14
}

// ratio divides num by den and returns NaN when den is zero or either side is undefined.
func ratio(num, den float64) float64 {
	if math.IsNaN(num) || math.IsNaN(den) || den == 0 {
		return math.NaN()
	}

	return num / den
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}

	return math.Max(lo, math.Min(hi, v))
}

func fillNaN(out []float64) {
	for i := range out {
		out[i] = math.NaN()
	}
}

func sourceValue(source types.PriceSource, c types.Candle) float64 {
	v, ok := source.Value(c)
	if !ok {
		return math.NaN()
	}

	return v
}
