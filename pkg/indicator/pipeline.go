package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// Pipeline is a fixed, validated set of indicators.
// It holds no per-series state and may be shared between goroutines.
type Pipeline struct {
	registry IndicatorRegistry
	configs  []types.IndicatorConfig
	columns  []string
	startup  int
}

// NewPipeline validates configs against registry. Every output column must be unique and
// must not shadow a raw candle field.
func NewPipeline(registry IndicatorRegistry, configs ...types.IndicatorConfig) (*Pipeline, error) {
	p := &Pipeline{
		registry: registry,
		configs:  append([]types.IndicatorConfig(nil), configs...),
	}

	indicators, err := p.build()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string)

	for i, ind := range indicators {
		for _, column := range ind.Columns() {
			if IsRawField(column) {
				return nil, invalidConfig(configs[i], errors.ErrCodeInvalidConfiguration, "name",
					fmt.Sprintf("column %s shadows a candle field", column))
			}

			if owner, exists := seen[column]; exists {
				return nil, invalidConfig(configs[i], errors.ErrCodeInvalidConfiguration, "name",
					fmt.Sprintf("column %s is already produced by %s", column, owner))
			}

			seen[column] = configs[i].Name
			p.columns = append(p.columns, column)
		}

		p.startup = max(p.startup, ind.Startup())
	}

	return p, nil
}

// Columns returns every output column in pipeline order.
func (p *Pipeline) Columns() []string {
	return append([]string(nil), p.columns...)
}

// Startup returns the largest startup count of the configured indicators.
func (p *Pipeline) Startup() int {
	return p.startup
}

// Compute runs every indicator over series and returns the resulting frame.
// Calling it twice on the same series yields identical frames.
func (p *Pipeline) Compute(series *types.Series) (*Frame, error) {
	stream, err := p.newStream(series.Len())
	if err != nil {
		return nil, err
	}

	for i := 0; i < series.Len(); i++ {
		stream.update(series.At(i))
	}

	return stream.frame, nil
}

// NewStream returns an empty incremental evaluator for one live series.
func (p *Pipeline) NewStream() (*Stream, error) {
	return p.newStream(0)
}

func (p *Pipeline) newStream(capacity int) (*Stream, error) {
	indicators, err := p.build()
	if err != nil {
		return nil, err
	}

	return &Stream{
		indicators: indicators,
		frame:      newFrame(p.Columns(), p.startup, capacity),
		row:        make([]float64, len(p.columns)),
	}, nil
}

func (p *Pipeline) build() ([]Indicator, error) {
	indicators := make([]Indicator, 0, len(p.configs))

	for _, cfg := range p.configs {
		ind, err := p.registry.Build(cfg)
		if err != nil {
			return nil, err
		}

		indicators = append(indicators, ind)
	}

	return indicators, nil
}

// Stream computes indicator values one candle at a time.
// Values produced by a Stream are identical to those of Pipeline.Compute over the same candles.
type Stream struct {
	indicators []Indicator
	frame      *Frame
	row        []float64
}

// Frame returns the frame built so far. It keeps growing with later appends.
func (s *Stream) Frame() *Frame {
	return s.frame
}

// Append adds the next closed or in-progress candle. Its time must be strictly after the last one.
func (s *Stream) Append(c types.Candle) error {
	n := s.frame.Len()
	if err := c.Validate(n); err != nil {
		return err
	}

	if n > 0 && !c.Time.After(s.frame.Time(n-1)) {
		return errors.NewData(errors.ErrCodeNonMonotonicTime, n, "time",
			fmt.Sprintf("candle time %s is not after %s", c.Time, s.frame.Time(n-1)))
	}

	s.update(c)

	return nil
}

// ReplaceLast replaces the in-progress final candle. Its time must equal the last one.
func (s *Stream) ReplaceLast(c types.Candle) error {
	n := s.frame.Len()
	if n == 0 {
		return errors.NewData(errors.ErrCodeEmptySeries, 0, "", "no candle to replace")
	}

	if err := c.Validate(n - 1); err != nil {
		return err
	}

	if !c.Time.Equal(s.frame.Time(n - 1)) {
		return errors.NewData(errors.ErrCodeNonMonotonicTime, n-1, "time",
			fmt.Sprintf("replacement time %s differs from %s", c.Time, s.frame.Time(n-1)))
	}

	offset := 0
	for _, ind := range s.indicators {
		width := len(ind.Columns())
		ind.Replace(c, s.row[offset:offset+width])
		offset += width
	}

	s.frame.replaceLast(c, s.row)

	return nil
}

func (s *Stream) update(c types.Candle) {
	offset := 0
	for _, ind := range s.indicators {
		width := len(ind.Columns())
		ind.Update(c, s.row[offset:offset+width])
		offset += width
	}

	s.frame.push(c, s.row)
}
