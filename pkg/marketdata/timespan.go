package marketdata

import (
	"time"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// Timespan is a candle sampling interval in exchange notation ("5m", "1h", ...).
type Timespan string

const (
	TimespanOneSecond      Timespan = "1s"
	TimespanOneMinute      Timespan = "1m"
	TimespanThreeMinutes   Timespan = "3m"
	TimespanFiveMinutes    Timespan = "5m"
	TimespanFifteenMinutes Timespan = "15m"
	TimespanThirtyMinutes  Timespan = "30m"
	TimespanOneHour        Timespan = "1h"
	TimespanTwoHours       Timespan = "2h"
	TimespanFourHours      Timespan = "4h"
	TimespanSixHours       Timespan = "6h"
	TimespanEightHours     Timespan = "8h"
	TimespanTwelveHours    Timespan = "12h"
	TimespanOneDay         Timespan = "1d"
	TimespanThreeDays      Timespan = "3d"
	TimespanOneWeek        Timespan = "1w"
)

var timespanDurations = map[Timespan]time.Duration{
	TimespanOneSecond:      time.Second,
	TimespanOneMinute:      time.Minute,
	TimespanThreeMinutes:   3 * time.Minute,
	TimespanFiveMinutes:    5 * time.Minute,
	TimespanFifteenMinutes: 15 * time.Minute,
	TimespanThirtyMinutes:  30 * time.Minute,
	TimespanOneHour:        time.Hour,
	TimespanTwoHours:       2 * time.Hour,
	TimespanFourHours:      4 * time.Hour,
	TimespanSixHours:       6 * time.Hour,
	TimespanEightHours:     8 * time.Hour,
	TimespanTwelveHours:    12 * time.Hour,
	TimespanOneDay:         24 * time.Hour,
	TimespanThreeDays:      72 * time.Hour,
	TimespanOneWeek:        7 * 24 * time.Hour,
}

// ParseTimespan validates s and returns it as a Timespan.
func ParseTimespan(s string) (Timespan, error) {
	t := Timespan(s)
	if _, ok := timespanDurations[t]; !ok {
		return "", errors.NewConfig(errors.ErrCodeInvalidTimeframe, "timeframe", "unsupported timeframe "+s)
	}

	return t, nil
}

// Duration returns the length of one candle. Unknown timespans return 0.
func (t Timespan) Duration() time.Duration {
	return timespanDurations[t]
}

// Minutes returns the candle length in whole minutes.
func (t Timespan) Minutes() int {
	return int(t.Duration() / time.Minute)
}

// CandlesFor returns how many candles of this timespan cover d, rounded up.
func (t Timespan) CandlesFor(d time.Duration) int {
	step := t.Duration()
	if step <= 0 || d <= 0 {
		return 0
	}

	return int((d + step - 1) / step)
}
