package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// NewVolumeMean creates the rolling mean of traded volume.
func NewVolumeMean(column string, period int) *MA {
	m := NewMA(column, period, types.PriceSourceVolume)
	m.kind = types.IndicatorTypeVolumeMean

	return m
}

// VolumeRatio divides each candle's volume by the rolling volume mean that includes it.
type VolumeRatio struct {
	column string
	period int
	values *window
}

// NewVolumeRatio creates a volume ratio over the mean of the last period volumes.
func NewVolumeRatio(column string, period int) *VolumeRatio {
	return &VolumeRatio{
		column: column,
		period: period,
		values: newWindow(period),
	}
}

// Name returns the name of the indicator.
func (v *VolumeRatio) Name() types.IndicatorType {
	return types.IndicatorTypeVolumeRatio
}

func (v *VolumeRatio) Columns() []string {
	return []string{v.column}
}

func (v *VolumeRatio) Startup() int {
	return v.period - 1
}

func (v *VolumeRatio) Update(c types.Candle, out []float64) {
	v.values.Push(c.Volume)
	out[0] = ratio(c.Volume, fullMean(v.values))
}

func (v *VolumeRatio) Replace(c types.Candle, out []float64) {
	v.values.Undo()
	v.Update(c, out)
}

// PriceChange is the percent change of a source over the last period candles.
type PriceChange struct {
	column string
	period int
	source types.PriceSource
	values *window
}

// NewPriceChange creates a percent change of source over period candles.
func NewPriceChange(column string, period int, source types.PriceSource) *PriceChange {
	return &PriceChange{
		column: column,
		period: period,
		source: source,
		values: newWindow(period + 1),
	}
}

// Name returns the name of the indicator.
func (p *PriceChange) Name() types.IndicatorType {
	return types.IndicatorTypePriceChange
}

func (p *PriceChange) Columns() []string {
	return []string{p.column}
}

func (p *PriceChange) Startup() int {
	return p.period
}

func (p *PriceChange) Update(c types.Candle, out []float64) {
	p.values.Push(sourceValue(p.source, c))

	if !p.values.Full() {
		out[0] = math.NaN()

		return
	}

	base := p.values.At(0)
	out[0] = ratio(p.values.Back(0)-base, base) * 100
}

func (p *PriceChange) Replace(c types.Candle, out []float64) {
	p.values.Undo()
	p.Update(c, out)
}

// LowerWick is the lower shadow of a candle as a percent of its close.
type LowerWick struct {
	column string
}

// NewLowerWick creates the lower wick indicator writing to column.
func NewLowerWick(column string) *LowerWick {
	return &LowerWick{column: column}
}

// Name returns the name of the indicator.
func (l *LowerWick) Name() types.IndicatorType {
	return types.IndicatorTypeLowerWick
}

func (l *LowerWick) Columns() []string {
	return []string{l.column}
}

func (l *LowerWick) Startup() int {
	return 0
}

func (l *LowerWick) Update(c types.Candle, out []float64) {
	out[0] = ratio(math.Min(c.Open, c.Close)-c.Low, c.Close) * 100
}

func (l *LowerWick) Replace(c types.Candle, out []float64) {
	l.Update(c, out)
}
