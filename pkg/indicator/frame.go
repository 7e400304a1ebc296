package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// rawFields are the candle fields addressable by name next to the indicator columns.
var rawFields = map[string]types.PriceSource{
	"open":   types.PriceSourceOpen,
	"high":   types.PriceSourceHigh,
	"low":    types.PriceSourceLow,
	"close":  types.PriceSourceClose,
	"volume": types.PriceSourceVolume,
}

// IsRawField reports whether name addresses a candle field rather than an indicator column.
func IsRawField(name string) bool {
	_, ok := rawFields[name]

	return ok
}

// Frame holds a candle series together with its indicator columns, aligned by index.
// A Frame returned by Pipeline.Compute is never modified afterwards; the Frame of a
// Stream grows as candles are appended.
type Frame struct {
	candles []types.Candle
	names   []string
	index   map[string]int
	values  [][]float64
	startup int
}

func newFrame(names []string, startup, capacity int) *Frame {
	f := &Frame{
		candles: make([]types.Candle, 0, capacity),
		names:   names,
		index:   make(map[string]int, len(names)),
		values:  make([][]float64, len(names)),
		startup: startup,
	}

	for i, name := range names {
		f.index[name] = i
		f.values[i] = make([]float64, 0, capacity)
	}

	return f
}

// Len returns the number of candles in the frame.
func (f *Frame) Len() int {
	return len(f.candles)
}

// Startup returns the number of leading candles whose indicator values may be undefined.
func (f *Frame) Startup() int {
	return f.startup
}

// Columns returns the indicator column names in pipeline order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)

	return out
}

// Has reports whether name is a raw field or an indicator column.
func (f *Frame) Has(name string) bool {
	if IsRawField(name) {
		return true
	}

	_, ok := f.index[name]

	return ok
}

// Candle returns the i-th candle.
func (f *Frame) Candle(i int) types.Candle {
	return f.candles[i]
}

// Time returns the open time of the i-th candle.
func (f *Frame) Time(i int) time.Time {
	return f.candles[i].Time
}

// Value returns the value of name at index i, NaN when undefined, out of range or unknown.
func (f *Frame) Value(name string, i int) float64 {
	if i < 0 || i >= len(f.candles) {
		return math.NaN()
	}

	if source, ok := rawFields[name]; ok {
		v, _ := source.Value(f.candles[i])

		return v
	}

	col, ok := f.index[name]
	if !ok {
		return math.NaN()
	}

	return f.values[col][i]
}

// Column returns a copy of a whole column.
func (f *Frame) Column(name string) ([]float64, error) {
	out := make([]float64, len(f.candles))

	if source, ok := rawFields[name]; ok {
		for i, c := range f.candles {
			out[i], _ = source.Value(c)
		}

		return out, nil
	}

	col, ok := f.index[name]
	if !ok {
		return nil, errors.NewIndicator(errors.ErrCodeColumnNotFound, name, fmt.Sprintf("column %s not found", name))
	}

	copy(out, f.values[col])

	return out, nil
}

func (f *Frame) push(c types.Candle, row []float64) {
	f.candles = append(f.candles, c)
	for i, v := range row {
		f.values[i] = append(f.values[i], v)
	}
}

func (f *Frame) replaceLast(c types.Candle, row []float64) {
	last := len(f.candles) - 1
	f.candles[last] = c

	for i, v := range row {
		f.values[i][last] = v
	}
}
