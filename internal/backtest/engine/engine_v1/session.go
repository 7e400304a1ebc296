package engine

import (
	"fmt"

	engine_types "github.com/rxtech-lab/argo-signal/internal/backtest/engine"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/indicator"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// session feeds a live candle stream through the same simulator as a batch run.
// It is not safe for concurrent use.
type session struct {
	*simulator
	stream *indicator.Stream
	// final reports whether the last candle of the stream was closed.
	final bool
}

// Update implements engine.Session.
func (s *session) Update(c types.Candle, final bool) ([]types.Action, error) {
	frame := s.stream.Frame()
	n := frame.Len()

	var err error

	if n > 0 && c.Time.Equal(frame.Time(n-1)) {
		if s.final {
			return nil, errors.NewData(errors.ErrCodeNonMonotonicTime, n-1, "time",
				fmt.Sprintf("candle at %s is already final", c.Time))
		}

		err = s.stream.ReplaceLast(c)
	} else {
		if n > 0 && !s.final {
			return nil, errors.NewData(errors.ErrCodeNonMonotonicTime, n, "time",
				fmt.Sprintf("candle at %s arrived before %s was final", c.Time, frame.Time(n-1)))
		}

		err = s.stream.Append(c)
	}

	if err != nil {
		return nil, err
	}

	s.final = final

	return s.step(frame, frame.Len()-1, final)
}

// Position implements engine.Session.
func (s *session) Position() *types.Position {
	return s.openPosition()
}

// Trades implements engine.Session.
func (s *session) Trades() []engine_types.Trade {
	return append([]engine_types.Trade(nil), s.trades...)
}
