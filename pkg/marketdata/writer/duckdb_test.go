package writer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-signal/internal/datasource"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/mocks"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/marketdata"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

type DuckDBWriterTestSuite struct {
	suite.Suite
	tempDir string
}

func TestDuckDBWriterSuite(t *testing.T) {
	suite.Run(t, new(DuckDBWriterTestSuite))
}

func (suite *DuckDBWriterTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *DuckDBWriterTestSuite) candle(i int) types.Candle {
	return types.Candle{
		Time:   time.Date(2023, 6, 15, 9, 30+i, 0, 0, time.UTC),
		Open:   150.0 + float64(i),
		High:   155.0 + float64(i),
		Low:    148.0 + float64(i),
		Close:  152.0 + float64(i),
		Volume: 1000000.0 + float64(i*100),
	}
}

func (suite *DuckDBWriterTestSuite) TestNewDuckDBWriter() {
	outputPath := filepath.Join(suite.tempDir, "test.parquet")
	writer := NewDuckDBWriter(outputPath)

	duckWriter, ok := writer.(*DuckDBWriter)
	suite.Require().True(ok)
	suite.Equal(outputPath, writer.GetOutputPath())
	suite.Nil(duckWriter.db)
	suite.Nil(duckWriter.tx)
	suite.Nil(duckWriter.stmt)
}

func (suite *DuckDBWriterTestSuite) TestInitializeUnsupportedExtension() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "test.json"))

	err := writer.Initialize()
	suite.True(errors.IsConfigurationError(err))
	suite.NoError(writer.Close())
}

func (suite *DuckDBWriterTestSuite) TestWriteWithoutInitialize() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "test_no_init.parquet"))

	err := writer.Write("AAPL", suite.candle(0))
	suite.Error(err)
	suite.Contains(err.Error(), "not initialized")

	_, err = writer.Finalize()
	suite.Error(err)
	suite.Contains(err.Error(), "not initialized")
}

func (suite *DuckDBWriterTestSuite) TestCloseIsIdempotent() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "test_close.parquet"))
	suite.NoError(writer.Close())

	suite.Require().NoError(writer.Initialize())
	suite.NoError(writer.Close())
	suite.NoError(writer.Close())

	duckWriter := writer.(*DuckDBWriter)
	suite.Nil(duckWriter.db)
	suite.Nil(duckWriter.tx)
	suite.Nil(duckWriter.stmt)
}

func (suite *DuckDBWriterTestSuite) TestWriteAfterFinalize() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "test_after.parquet"))
	suite.Require().NoError(writer.Initialize())
	suite.Require().NoError(writer.Write("AAPL", suite.candle(0)))

	_, err := writer.Finalize()
	suite.Require().NoError(err)

	suite.Error(writer.Write("AAPL", suite.candle(1)))

	_, err = writer.Finalize()
	suite.Error(err)
	suite.NoError(writer.Close())
}

func (suite *DuckDBWriterTestSuite) TestRoundTrip() {
	for _, name := range []string{"candles.parquet", "candles.csv"} {
		suite.Run(name, func() {
			outputPath := filepath.Join(suite.tempDir, name)

			genConfig := mocks.DefaultConfig()
			genConfig.Count = 50
			genConfig.Interval = time.Minute

			series, err := mocks.NewDataGenerator(3).GenerateMultiSymbol([]string{"BTC", "ETH"}, genConfig)
			suite.Require().NoError(err)

			writer := NewDuckDBWriter(outputPath)
			suite.Require().NoError(writer.Initialize())

			for _, s := range series {
				suite.Require().NoError(writer.WriteSeries(s))
			}

			path, err := writer.Finalize()
			suite.Require().NoError(err)
			suite.Equal(outputPath, path)
			suite.Require().NoError(writer.Close())

			info, err := os.Stat(path)
			suite.Require().NoError(err)
			suite.Greater(info.Size(), int64(0))

			source, err := datasource.NewDataSource(logger.NewNopLogger())
			suite.Require().NoError(err)

			defer func() { _ = source.Close() }()

			suite.Require().NoError(source.Initialize(path))

			symbols, err := source.Symbols(context.Background())
			suite.Require().NoError(err)
			suite.ElementsMatch([]string{"BTC", "ETH"}, symbols)

			loaded, err := source.Load(context.Background(), datasource.LoadParams{
				Symbol:    "ETH",
				Timeframe: marketdata.TimespanOneMinute,
			})
			suite.Require().NoError(err)
			suite.Require().Equal(series[1].Len(), loaded.Len())

			for i := 0; i < loaded.Len(); i++ {
				want, got := series[1].At(i), loaded.At(i)
				suite.True(want.Time.Equal(got.Time), "time at %d", i)
				suite.InDelta(want.Close, got.Close, 1e-9)
				suite.InDelta(want.Volume, got.Volume, 1e-9)
			}
		})
	}
}
