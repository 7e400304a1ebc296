package types

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SeriesTestSuite struct {
	suite.Suite
	start time.Time
}

func TestSeriesSuite(t *testing.T) {
	suite.Run(t, new(SeriesTestSuite))
}

func (suite *SeriesTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *SeriesTestSuite) candle(minutes int, price float64) Candle {
	return Candle{
		Time:   suite.start.Add(time.Duration(minutes) * time.Minute),
		Open:   price,
		High:   price + 1,
		Low:    price - 1,
		Close:  price,
		Volume: 10,
	}
}

func (suite *SeriesTestSuite) TestNewSeriesCopiesInput() {
	candles := []Candle{suite.candle(0, 100), suite.candle(5, 101)}
	series, err := NewSeries("BTC/USDT", 5*time.Minute, candles)
	suite.Require().NoError(err)

	candles[0].Close = 1
	suite.Equal(100.0, series.At(0).Close)
	suite.Equal(2, series.Len())
	suite.Equal("BTC/USDT", series.Symbol())
	suite.Equal(5*time.Minute, series.Timeframe())
}

func (suite *SeriesTestSuite) TestNewSeriesAllowsGaps() {
	series, err := NewSeries("ETH", 5*time.Minute, []Candle{suite.candle(0, 100), suite.candle(45, 99)})
	suite.NoError(err)
	suite.Equal(2, series.Len())
}

func (suite *SeriesTestSuite) TestNewSeriesRejectsMalformed() {
	testCases := []struct {
		name  string
		edit  func(c *Candle)
		code  errors.ErrorCode
		field string
	}{
		{name: "negative volume", edit: func(c *Candle) { c.Volume = -1 }, code: errors.ErrCodeNegativeValue, field: "volume"},
		{name: "high below low", edit: func(c *Candle) { c.High = c.Low - 2 }, code: errors.ErrCodeInvalidPriceRange, field: "high"},
		{name: "close above high", edit: func(c *Candle) { c.Close = c.High + 1 }, code: errors.ErrCodeInvalidPriceRange, field: "close"},
		{name: "open below low", edit: func(c *Candle) { c.Open = c.Low - 0.5 }, code: errors.ErrCodeInvalidPriceRange, field: "open"},
		{name: "zero time", edit: func(c *Candle) { c.Time = time.Time{} }, code: errors.ErrCodeInvalidCandle, field: "time"},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			candles := []Candle{suite.candle(0, 100), suite.candle(5, 100), suite.candle(10, 100)}
			tc.edit(&candles[2])

			series, err := NewSeries("BTC", time.Minute, candles)
			suite.Nil(series)
			suite.Require().Error(err)
			suite.True(errors.IsDataError(err))
			suite.True(errors.HasCode(err, tc.code))

			var e *errors.Error
			suite.Require().True(errors.As(err, &e))
			suite.Equal(2, e.Index)
			suite.Equal(tc.field, e.Field)
		})
	}
}

func (suite *SeriesTestSuite) TestNewSeriesRejectsNonMonotonicTime() {
	_, err := NewSeries("BTC", time.Minute, []Candle{suite.candle(5, 100), suite.candle(5, 100)})
	suite.True(errors.HasCode(err, errors.ErrCodeNonMonotonicTime))

	_, err = NewSeries("BTC", time.Minute, []Candle{suite.candle(5, 100), suite.candle(0, 100)})
	suite.True(errors.HasCode(err, errors.ErrCodeNonMonotonicTime))
}

func (suite *SeriesTestSuite) TestAppendAndReplaceLast() {
	series, err := NewSeries("BTC", time.Minute, nil)
	suite.Require().NoError(err)

	suite.NoError(series.Append(suite.candle(0, 100)))
	suite.NoError(series.Append(suite.candle(1, 101)))
	suite.True(errors.HasCode(series.Append(suite.candle(1, 102)), errors.ErrCodeNonMonotonicTime))

	suite.NoError(series.ReplaceLast(suite.candle(1, 105)))
	suite.Equal(105.0, series.At(1).Close)
	suite.Equal(100.0, series.At(0).Close)

	err = series.ReplaceLast(suite.candle(2, 105))
	suite.True(errors.HasCode(err, errors.ErrCodeNonMonotonicTime))
}

func (suite *SeriesTestSuite) TestReplaceLastOnEmptySeries() {
	series, err := NewSeries("BTC", time.Minute, nil)
	suite.Require().NoError(err)

	err = series.ReplaceLast(suite.candle(0, 100))
	suite.True(errors.HasCode(err, errors.ErrCodeEmptySeries))
}

func (suite *SeriesTestSuite) TestHead() {
	series, err := NewSeries("BTC", time.Minute, []Candle{suite.candle(0, 100), suite.candle(1, 101), suite.candle(2, 102)})
	suite.Require().NoError(err)

	head := series.Head(2)
	suite.Equal(2, head.Len())
	suite.Equal(101.0, head.At(1).Close)
	suite.Equal(3, series.Head(10).Len())
	suite.Equal(0, series.Head(-1).Len())

	suite.NoError(head.Append(suite.candle(5, 90)))
	suite.Equal(102.0, series.At(2).Close)
}

func (suite *SeriesTestSuite) TestCandleHelpers() {
	c := Candle{Time: suite.start, Open: 10, High: 13, Low: 8, Close: 12, Volume: 1}
	suite.True(c.IsGreen())
	suite.False(c.IsRed())
	suite.InDelta(11.0, c.TypicalPrice(), 1e-12)
}
