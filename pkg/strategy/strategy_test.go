package strategy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-signal/mocks"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/exit"
	"github.com/rxtech-lab/argo-signal/pkg/marketdata"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

const minimalStrategy = `
name: test
timeframe: 5m
minimal_roi:
  "0": 0.02
  "1h30m": 0.005
stoploss: -0.05
exit_priority: [roi, stoploss, trailing]
indicators:
  - {type: sma, name: fast, period: 3}
  - {type: sma, name: slow, period: 5}
entry:
  cross: {left: {column: fast}, direction: above, right: {column: slow}}
`

type StrategyTestSuite struct {
	suite.Suite
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (suite *StrategyTestSuite) TestParseAndBuild() {
	cfg, err := Parse([]byte(minimalStrategy))
	suite.Require().NoError(err)
	suite.Equal("test", cfg.Name)

	s, err := Build(cfg, Options{})
	suite.Require().NoError(err)

	suite.Equal("test", s.Name())
	suite.Equal(marketdata.TimespanFiveMinutes, s.Timeframe)
	suite.Equal(4, s.Startup)
	suite.Equal([]string{"fast", "slow"}, s.Pipeline.Columns())
	suite.Nil(s.Rules.Exit)

	suite.Equal([]exit.ROIStep{{After: 90 * time.Minute, ROI: 0.005}, {After: 0, ROI: 0.02}}, s.Policy.Ladder())
	suite.Equal([]types.ExitReason{types.ExitReasonROI, types.ExitReasonStopLoss, types.ExitReasonTrailing}, s.Policy.Priority())
	suite.NotNil(s.NewMachine())
}

func (suite *StrategyTestSuite) TestPresets() {
	suite.Equal([]string{PresetAggressiveScalp, PresetLiquidationHunt, PresetMinimalPionex}, Presets())

	startups := map[string]int{
		PresetAggressiveScalp: 50,
		PresetLiquidationHunt: 100,
		PresetMinimalPionex:   199,
	}

	genConfig := mocks.DefaultConfig()
	genConfig.Count = 600

	for _, name := range Presets() {
		suite.Run(name, func() {
			cfg, err := Preset(name)
			suite.Require().NoError(err)

			s, err := Build(cfg, Options{})
			suite.Require().NoError(err)
			suite.Equal(startups[name], s.Startup)

			series, err := mocks.NewDataGenerator(7).GenerateSeries(genConfig)
			suite.Require().NoError(err)

			frame, err := s.Pipeline.Compute(series)
			suite.Require().NoError(err)

			signals := s.Rules.Evaluate(frame, s.Startup)
			suite.Len(signals.Enter, series.Len())

			for i := 0; i < s.Startup; i++ {
				suite.False(signals.Enter[i])
				suite.False(signals.Exit[i])
			}
		})
	}

	_, err := Preset("moonshot")
	suite.Error(err)
}

func (suite *StrategyTestSuite) TestAggressiveScalpRisk() {
	cfg, err := Preset(PresetAggressiveScalp)
	suite.Require().NoError(err)

	s, err := Build(cfg, Options{})
	suite.Require().NoError(err)

	suite.Equal(-0.018, s.Policy.StopLoss())
	suite.Equal(exit.TrailingConfig{Enabled: true, OnlyOffsetIsReached: true, Offset: 0.015, Distance: 0.008}, s.Policy.Trailing())
	suite.Equal(80*time.Minute, s.Policy.MaxHold())

	target, ok := s.Policy.TargetAt(25 * time.Minute)
	suite.True(ok)
	suite.Equal(0.025, target)
}

func (suite *StrategyTestSuite) TestConfigErrors() {
	testCases := []struct {
		name   string
		yaml   string
		code   errors.ErrorCode
		engine string
	}{
		{
			name: "unknown key",
			yaml: minimalStrategy + "leverage: 3\n",
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "missing name",
			yaml: "timeframe: 5m\nminimal_roi: {\"0\": 0.01}\nstoploss: -0.1\nentry: {shape: {candle: green}}\n",
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "missing entry",
			yaml: "name: x\ntimeframe: 5m\nminimal_roi: {\"0\": 0.01}\nstoploss: -0.1\n",
			code: errors.ErrCodeInvalidRule,
		},
		{
			name: "unsupported timeframe",
			yaml: "name: x\ntimeframe: 7m\nminimal_roi: {\"0\": 0.01}\nstoploss: -0.1\nentry: {shape: {candle: green}}\n",
			code: errors.ErrCodeInvalidTimeframe,
		},
		{
			name: "bad ROI key",
			yaml: "name: x\ntimeframe: 5m\nminimal_roi: {soon: 0.01}\nstoploss: -0.1\nentry: {shape: {candle: green}}\n",
			code: errors.ErrCodeInvalidROILadder,
		},
		{
			name: "positive stoploss",
			yaml: "name: x\ntimeframe: 5m\nminimal_roi: {\"0\": 0.01}\nstoploss: 0.1\nentry: {shape: {candle: green}}\n",
			code: errors.ErrCodeInvalidStopLoss,
		},
		{
			name: "unknown column",
			yaml: "name: x\ntimeframe: 5m\nminimal_roi: {\"0\": 0.01}\nstoploss: -0.1\nentry: {threshold: {column: rsi, op: \">\", value: 1}}\n",
			code: errors.ErrCodeUnknownColumn,
		},
		{
			name: "unknown indicator",
			yaml: "name: x\ntimeframe: 5m\nminimal_roi: {\"0\": 0.01}\nstoploss: -0.1\nindicators: [{type: vwap, name: vwap}]\nentry: {shape: {candle: green}}\n",
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "bad exit priority",
			yaml: "name: x\ntimeframe: 5m\nminimal_roi: {\"0\": 0.01}\nstoploss: -0.1\nexit_priority: [roi]\nentry: {shape: {candle: green}}\n",
			code: errors.ErrCodeInvalidPriority,
		},
		{
			name:   "engine too new",
			yaml:   "name: x\nengine: \"< 2.0.0\"\ntimeframe: 5m\nminimal_roi: {\"0\": 0.01}\nstoploss: -0.1\nentry: {shape: {candle: green}}\n",
			code:   errors.ErrCodeVersionMismatch,
			engine: "2.1.0",
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			cfg, err := Parse([]byte(tc.yaml))
			if err == nil {
				_, err = Build(cfg, Options{EngineVersion: tc.engine})
			}

			suite.Require().Error(err)
			suite.True(errors.IsConfigurationError(err), err.Error())
			suite.True(errors.HasCode(err, tc.code), err.Error())
		})
	}
}

func (suite *StrategyTestSuite) TestValidationField() {
	_, err := Parse([]byte("timeframe: 5m\nminimal_roi: {\"0\": 0.01}\nstoploss: -0.1\nentry: {shape: {candle: green}}\n"))
	suite.Require().Error(err)

	var e *errors.Error
	suite.Require().True(errors.As(err, &e))
	suite.Equal("Config.Name", e.Field)
}

func (suite *StrategyTestSuite) TestLoadAndResolve() {
	path := filepath.Join(suite.T().TempDir(), "strategy.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(minimalStrategy), 0o600))

	cfg, err := Load(path)
	suite.Require().NoError(err)
	suite.Equal("test", cfg.Name)

	cfg, err = Resolve(path)
	suite.Require().NoError(err)
	suite.Equal("test", cfg.Name)

	cfg, err = Resolve(PresetMinimalPionex)
	suite.Require().NoError(err)
	suite.Equal(PresetMinimalPionex, cfg.Name)

	_, err = Load(filepath.Join(suite.T().TempDir(), "missing.yaml"))
	suite.Error(err)
}
