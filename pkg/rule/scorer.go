package rule

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/argo-signal/pkg/indicator"
)

// Scorer adapts an external prediction model. Implementations must answer from data they
// already hold: the evaluator calls Score synchronously, possibly more than once per candle.
type Scorer interface {
	// Score returns the model output at index i. A NaN score or an error means no prediction.
	Score(f *indicator.Frame, i int) (float64, error)
}

// Scorers maps model names used in rule files to their adapters.
type Scorers map[string]Scorer

// Score compares the output of a named model with a constant.
type Score struct {
	Model  string
	Scorer Scorer
	Op     Comparison
	Value  float64
}

func (s Score) Eval(f *indicator.Frame, i int) bool {
	v, ok := s.score(f, i)

	return ok && s.Op.Compare(v, s.Value)
}

// Defined reports whether the model has a prediction for index i.
func (s Score) Defined(f *indicator.Frame, i int) bool {
	_, ok := s.score(f, i)

	return ok
}

func (s Score) score(f *indicator.Frame, i int) (float64, bool) {
	if !inRange(f, i) || s.Scorer == nil {
		return 0, false
	}

	v, err := s.Scorer.Score(f, i)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}

	return v, true
}

func (s Score) Columns() []string {
	return nil
}

func (s Score) Lookback() int {
	return 0
}

func (s Score) String() string {
	return fmt.Sprintf("score(%s) %s %g", s.Model, s.Op, s.Value)
}
