package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/marketdata"
)

var dataStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	source CandleSource
	path   string
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

func (suite *DuckDBDataSourceTestSuite) SetupTest() {
	var b strings.Builder

	b.WriteString("time,symbol,open,high,low,close,volume\n")

	for i := 0; i < 10; i++ {
		ts := dataStart.Add(time.Duration(i) * time.Minute).Format("2006-01-02 15:04:05")
		fmt.Fprintf(&b, "%s,BTC,%d,%d,%d,%.1f,10\n", ts, 100+i, 101+i, 99+i, 100.5+float64(i))
		fmt.Fprintf(&b, "%s,ETH,%d,%d,%d,%.1f,20\n", ts, 10+i, 11+i, 9+i, 10.5+float64(i))
	}

	suite.path = filepath.Join(suite.T().TempDir(), "candles.csv")
	suite.Require().NoError(os.WriteFile(suite.path, []byte(b.String()), 0o600))

	source, err := NewDataSource(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(source.Initialize(suite.path))

	suite.source = source
}

func (suite *DuckDBDataSourceTestSuite) TearDownTest() {
	suite.NoError(suite.source.Close())
}

func (suite *DuckDBDataSourceTestSuite) TestSymbols() {
	symbols, err := suite.source.Symbols(context.Background())
	suite.Require().NoError(err)
	suite.Equal([]string{"BTC", "ETH"}, symbols)
}

func (suite *DuckDBDataSourceTestSuite) TestCount() {
	ctx := context.Background()

	count, err := suite.source.Count(ctx, "BTC", optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(10, count)

	count, err = suite.source.Count(ctx, "BTC", optional.Some(dataStart.Add(5*time.Minute)), optional.Some(dataStart.Add(7*time.Minute)))
	suite.Require().NoError(err)
	suite.Equal(3, count)
}

func (suite *DuckDBDataSourceTestSuite) TestLoadRaw() {
	series, err := suite.source.Load(context.Background(), LoadParams{
		Symbol:    "BTC",
		Timeframe: marketdata.TimespanOneMinute,
		Start:     optional.Some(dataStart.Add(5 * time.Minute)),
	})
	suite.Require().NoError(err)

	suite.Equal("BTC", series.Symbol())
	suite.Equal(time.Minute, series.Timeframe())
	suite.Equal(5, series.Len())

	first := series.At(0)
	suite.True(first.Time.Equal(dataStart.Add(5 * time.Minute)))
	suite.Equal(105.0, first.Open)
	suite.Equal(106.0, first.High)
	suite.Equal(104.0, first.Low)
	suite.Equal(105.5, first.Close)
	suite.Equal(10.0, first.Volume)
}

func (suite *DuckDBDataSourceTestSuite) TestLoadResampled() {
	series, err := suite.source.Load(context.Background(), LoadParams{
		Symbol:    "BTC",
		Timeframe: marketdata.TimespanFiveMinutes,
		Resample:  true,
	})
	suite.Require().NoError(err)
	suite.Require().Equal(2, series.Len())

	first := series.At(0)
	suite.True(first.Time.Equal(dataStart))
	suite.Equal(100.0, first.Open)
	suite.Equal(105.0, first.High)
	suite.Equal(99.0, first.Low)
	suite.Equal(104.5, first.Close)
	suite.Equal(50.0, first.Volume)

	second := series.At(1)
	suite.True(second.Time.Equal(dataStart.Add(5 * time.Minute)))
	suite.Equal(105.0, second.Open)
	suite.Equal(109.5, second.Close)
}

func (suite *DuckDBDataSourceTestSuite) TestLoadErrors() {
	ctx := context.Background()

	_, err := suite.source.Load(ctx, LoadParams{Symbol: "DOGE", Timeframe: marketdata.TimespanOneMinute})
	suite.True(errors.HasCode(err, errors.ErrCodeNoDataFound))

	_, err = suite.source.Load(ctx, LoadParams{Symbol: "BTC", Timeframe: "7m"})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimeframe))
}

func (suite *DuckDBDataSourceTestSuite) TestInitializeErrors() {
	err := suite.source.Initialize(filepath.Join(suite.T().TempDir(), "candles.feather"))
	suite.True(errors.IsDataError(err))
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceFailed))
}
