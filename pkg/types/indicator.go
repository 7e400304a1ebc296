package types

type IndicatorType string

const (
	IndicatorTypeSMA            IndicatorType = "sma"
	IndicatorTypeEMA            IndicatorType = "ema"
	IndicatorTypeRSI            IndicatorType = "rsi"
	IndicatorTypeMACD           IndicatorType = "macd"
	IndicatorTypeBollingerBands IndicatorType = "bollinger_bands"
	IndicatorTypeADX            IndicatorType = "adx"
	IndicatorTypeATR            IndicatorType = "atr"
	IndicatorTypeStochastic     IndicatorType = "stochastic"
	IndicatorTypeVolumeMean     IndicatorType = "volume_mean"
	IndicatorTypeVolumeRatio    IndicatorType = "volume_ratio"
	IndicatorTypePriceChange    IndicatorType = "price_change"
	IndicatorTypeLowerWick      IndicatorType = "lower_wick"
)

// PriceSource selects which candle field feeds an indicator.
type PriceSource string

const (
	PriceSourceOpen    PriceSource = "open"
	PriceSourceHigh    PriceSource = "high"
	PriceSourceLow     PriceSource = "low"
	PriceSourceClose   PriceSource = "close"
	PriceSourceVolume  PriceSource = "volume"
	PriceSourceTypical PriceSource = "typical"
)

// Value extracts the source value from a candle. ok is false for unknown sources.
func (s PriceSource) Value(c Candle) (v float64, ok bool) {
	switch s {
	case PriceSourceOpen:
		return c.Open, true
	case PriceSourceHigh:
		return c.High, true
	case PriceSourceLow:
		return c.Low, true
	case PriceSourceClose, "":
		return c.Close, true
	case PriceSourceVolume:
		return c.Volume, true
	case PriceSourceTypical:
		return c.TypicalPrice(), true
	default:
		return 0, false
	}
}

// IndicatorConfig declares one indicator of a strategy's pipeline.
// Fields that do not apply to the indicator type are ignored.
type IndicatorConfig struct {
	Type IndicatorType `yaml:"type" json:"type" jsonschema:"title=Type,description=Indicator family,required,enum=sma,enum=ema,enum=rsi,enum=macd,enum=bollinger_bands,enum=adx,enum=atr,enum=stochastic,enum=volume_mean,enum=volume_ratio,enum=price_change,enum=lower_wick" validate:"required"`
	// Name is the output column, or the column prefix for multi-column indicators.
	Name         string      `yaml:"name" json:"name" jsonschema:"title=Name,description=Output column or column prefix,required" validate:"required"`
	Period       int         `yaml:"period,omitempty" json:"period,omitempty" jsonschema:"title=Period" validate:"gte=0"`
	FastPeriod   int         `yaml:"fast_period,omitempty" json:"fast_period,omitempty" jsonschema:"title=Fast period" validate:"gte=0"`
	SlowPeriod   int         `yaml:"slow_period,omitempty" json:"slow_period,omitempty" jsonschema:"title=Slow period" validate:"gte=0"`
	SignalPeriod int         `yaml:"signal_period,omitempty" json:"signal_period,omitempty" jsonschema:"title=Signal period" validate:"gte=0"`
	StdDev       float64     `yaml:"std_dev,omitempty" json:"std_dev,omitempty" jsonschema:"title=Standard deviations" validate:"gte=0"`
	Source       PriceSource `yaml:"source,omitempty" json:"source,omitempty" jsonschema:"title=Source,enum=open,enum=high,enum=low,enum=close,enum=volume,enum=typical"`
	// SampleStdDev switches Bollinger deviation from population to sample (n-1).
	SampleStdDev bool `yaml:"sample_std_dev,omitempty" json:"sample_std_dev,omitempty" jsonschema:"title=Sample standard deviation"`
}
