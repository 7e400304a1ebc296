package rule_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-signal/mocks"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/indicator"
	"github.com/rxtech-lab/argo-signal/pkg/rule"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

type RuleTestSuite struct {
	suite.Suite
	frame *indicator.Frame
}

func TestRuleSuite(t *testing.T) {
	suite.Run(t, new(RuleTestSuite))
}

// closes: 10 11 12 11 10 11 13; sma2 is defined from index 1.
func (suite *RuleTestSuite) SetupTest() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opens := []float64{10, 10, 11, 12, 11, 10, 11}
	closes := []float64{10, 11, 12, 11, 10, 11, 13}

	candles := make([]types.Candle, len(closes))
	for i := range closes {
		candles[i] = types.Candle{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   opens[i],
			High:   math.Max(opens[i], closes[i]),
			Low:    math.Min(opens[i], closes[i]),
			Close:  closes[i],
			Volume: float64(100 * (i + 1)),
		}
	}

	pipeline, err := indicator.NewPipeline(indicator.NewDefaultRegistry(),
		types.IndicatorConfig{Type: types.IndicatorTypeSMA, Name: "sma2", Period: 2},
		types.IndicatorConfig{Type: types.IndicatorTypeSMA, Name: "sma3", Period: 3},
	)
	suite.Require().NoError(err)

	suite.frame, err = pipeline.Compute(mocks.MustSeries(time.Minute, candles))
	suite.Require().NoError(err)
}

func (suite *RuleTestSuite) evalAll(p rule.Predicate) []bool {
	out := make([]bool, suite.frame.Len())
	for i := range out {
		out[i] = p.Eval(suite.frame, i)
	}

	return out
}

func (suite *RuleTestSuite) TestThreshold() {
	p := rule.Threshold{Left: rule.Operand{Column: "close"}, Op: rule.GreaterThan, Value: 11}
	suite.Equal([]bool{false, false, true, false, false, false, true}, suite.evalAll(p))

	shifted := rule.Threshold{Left: rule.Operand{Column: "close", Shift: 1}, Op: rule.GreaterOrEqual, Value: 12}
	suite.Equal([]bool{false, false, false, true, false, false, false}, suite.evalAll(shifted))
	suite.Equal(1, shifted.Lookback())

	undefined := rule.Threshold{Left: rule.Operand{Column: "sma3"}, Op: rule.LessThan, Value: 1000}
	suite.Equal([]bool{false, false, true, true, true, true, true}, suite.evalAll(undefined))

	suite.False(p.Eval(suite.frame, -1))
	suite.False(p.Eval(suite.frame, suite.frame.Len()))
	suite.False(p.Eval(nil, 0))
}

func (suite *RuleTestSuite) TestNaNNeverCompares() {
	for _, op := range []rule.Comparison{rule.GreaterThan, rule.GreaterOrEqual, rule.LessThan, rule.LessOrEqual, rule.Equal, rule.NotEqual} {
		suite.False(op.Compare(math.NaN(), 1), string(op))
		suite.False(op.Compare(1, math.NaN()), string(op))
	}

	suite.False(rule.Comparison("~").Compare(1, 1))
}

func (suite *RuleTestSuite) TestRelativeCompareWithScaleAndShift() {
	// volume > volume[-1] * 1.4 holds while volume grows by more than 40%
	p := rule.RelativeCompare{
		Left:  rule.Operand{Column: "volume"},
		Op:    rule.GreaterThan,
		Right: rule.Operand{Column: "volume", Shift: 1, Scale: 1.4},
	}

	suite.Equal([]bool{false, true, true, false, false, false, false}, suite.evalAll(p))
	suite.Equal([]string{"volume", "volume"}, p.Columns())
}

func (suite *RuleTestSuite) TestCrossover() {
	// close vs sma2: 11>10.5, 12>11.5, 11<11.5, 10<10.5, 11>10.5, 13>12
	above := rule.Crossover{Left: rule.Operand{Column: "close"}, Right: rule.Operand{Column: "sma2"}, Direction: rule.CrossAbove}
	below := rule.Crossover{Left: rule.Operand{Column: "close"}, Right: rule.Operand{Column: "sma2"}, Direction: rule.CrossBelow}

	suite.Equal([]bool{false, false, false, false, false, true, false}, suite.evalAll(above))
	suite.Equal([]bool{false, false, false, true, false, false, false}, suite.evalAll(below))
	suite.Equal(1, above.Lookback())
}

func (suite *RuleTestSuite) TestCrossoverFromEquality() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []types.Candle{
		{Time: base, Open: 10, High: 10, Low: 10, Close: 10},
		{Time: base.Add(time.Minute), Open: 10, High: 11, Low: 10, Close: 11},
	}

	pipeline, err := indicator.NewPipeline(indicator.NewDefaultRegistry())
	suite.Require().NoError(err)

	frame, err := pipeline.Compute(mocks.MustSeries(time.Minute, candles))
	suite.Require().NoError(err)

	// close touches open on the first candle, then leaves it upwards
	p := rule.Crossover{Left: rule.Operand{Column: "close"}, Right: rule.Operand{Column: "open"}, Direction: rule.CrossAbove}
	suite.False(p.Eval(frame, 0))
	suite.True(p.Eval(frame, 1))
}

func (suite *RuleTestSuite) TestCandleShape() {
	green := rule.CandleShape{Shape: rule.ShapeGreen}
	red := rule.CandleShape{Shape: rule.ShapeRed}
	previousGreen := rule.CandleShape{Shape: rule.ShapeGreen, Shift: 1}

	suite.Equal([]bool{false, true, true, false, false, true, true}, suite.evalAll(green))
	suite.Equal([]bool{false, false, false, true, true, false, false}, suite.evalAll(red))
	suite.Equal([]bool{false, false, true, true, false, false, true}, suite.evalAll(previousGreen))
}

func (suite *RuleTestSuite) TestCombinators() {
	green := rule.CandleShape{Shape: rule.ShapeGreen}
	high := rule.Threshold{Left: rule.Operand{Column: "close"}, Op: rule.GreaterOrEqual, Value: 12}

	suite.Equal([]bool{false, false, true, false, false, false, true}, suite.evalAll(rule.And{green, high}))
	suite.Equal([]bool{false, true, true, false, false, true, true}, suite.evalAll(rule.Or{green, high}))
	suite.Equal([]bool{true, false, false, true, true, false, false}, suite.evalAll(rule.Not{Child: green}))

	suite.Equal([]bool{false, false, false, false, false, false, false}, suite.evalAll(rule.And{}))
	suite.Equal([]bool{false, false, false, false, false, false, false}, suite.evalAll(rule.Or{}))
	suite.False(rule.Not{Child: green}.Eval(suite.frame, 99))

	nested := rule.And{rule.Or{green, high}, rule.Threshold{Left: rule.Operand{Column: "sma3", Shift: 2}, Op: rule.GreaterThan, Value: 0}}
	suite.Equal(2, nested.Lookback())
	suite.ElementsMatch([]string{"open", "close", "sma3"}, nested.Columns())
}

func (suite *RuleTestSuite) TestScore() {
	ctrl := gomock.NewController(suite.T())
	scorer := mocks.NewMockScorer(ctrl)

	scorer.EXPECT().Score(suite.frame, 1).Return(0.8, nil)
	scorer.EXPECT().Score(suite.frame, 2).Return(0.2, nil)
	scorer.EXPECT().Score(suite.frame, 3).Return(math.NaN(), nil)
	scorer.EXPECT().Score(suite.frame, 4).Return(0.0, errors.New(errors.ErrCodeUnknown, "model offline"))

	node := rule.Node{Score: &rule.ScoreNode{Model: "fisher", Op: ">", Value: 0.5}}

	p, err := rule.Compile(node, rule.CompileOptions{Scorers: rule.Scorers{"fisher": scorer}})
	suite.Require().NoError(err)

	suite.True(p.Eval(suite.frame, 1))
	suite.False(p.Eval(suite.frame, 2))
	suite.False(p.Eval(suite.frame, 3))
	suite.False(p.Eval(suite.frame, 4))
	suite.False(p.Eval(suite.frame, 100))
}

func (suite *RuleTestSuite) TestCompileFromYAML() {
	source := `
all:
  - shape: {candle: green}
  - compare: {left: {column: close}, op: ">", right: {column: sma2}}
  - any:
      - threshold: {column: close, op: ">=", value: 13}
      - not:
          threshold: {column: sma3, shift: 1, op: "<", value: 11}
`

	var node rule.Node
	suite.Require().NoError(yaml.Unmarshal([]byte(source), &node))

	p, err := rule.Compile(node, rule.CompileOptions{Columns: []string{"sma2", "sma3"}})
	suite.Require().NoError(err)

	// sma3[-1] is undefined before index 3, so the negated branch cannot hold there.
	suite.Equal([]bool{false, false, false, false, false, true, true}, suite.evalAll(p))
	suite.Equal(1, p.Lookback())
}

func (suite *RuleTestSuite) TestNotOverUndefinedIsFalse() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, 5)
	for i := range candles {
		candles[i] = types.Candle{Time: base.Add(time.Duration(i) * time.Minute), Open: 10, High: 10, Low: 10, Close: 10, Volume: 1}
	}

	pipeline, err := indicator.NewPipeline(indicator.NewDefaultRegistry(),
		types.IndicatorConfig{Type: types.IndicatorTypeBollingerBands, Name: "bb", Period: 3, StdDev: 2},
	)
	suite.Require().NoError(err)

	frame, err := pipeline.Compute(mocks.MustSeries(time.Minute, candles))
	suite.Require().NoError(err)
	suite.True(math.IsNaN(frame.Value("bb_percent", 4)))

	var node rule.Node
	suite.Require().NoError(yaml.Unmarshal([]byte(`not: {threshold: {column: bb_percent, op: ">", value: 1}}`), &node))

	rules, err := rule.CompileRuleSet("flat", node, rule.Node{}, rule.CompileOptions{Columns: pipeline.Columns()})
	suite.Require().NoError(err)

	signals := rules.Evaluate(frame, 2)
	suite.Equal([]bool{false, false, false, false, false}, signals.Enter)

	// the middle band is defined on flat data, so a negation over it still evaluates
	mid := rule.Not{Child: rule.Threshold{Left: rule.Operand{Column: "bb_middleband"}, Op: rule.GreaterThan, Value: 10}}
	suite.True(mid.Eval(frame, 4))
	suite.False(mid.Eval(frame, 1))
}

func (suite *RuleTestSuite) TestNotOverShiftedHistory() {
	p := rule.Not{Child: rule.Crossover{Left: rule.Operand{Column: "close"}, Right: rule.Operand{Column: "sma2"}, Direction: rule.CrossAbove}}

	// sma2 is undefined at 0, so the crossover has no previous value until index 2
	suite.Equal([]bool{false, false, true, true, true, false, true}, suite.evalAll(p))

	inner := rule.Threshold{Left: rule.Operand{Column: "sma3", Shift: 2}, Op: rule.GreaterThan, Value: 0}
	suite.False(inner.Defined(suite.frame, 3))
	suite.True(inner.Defined(suite.frame, 4))
	suite.False(rule.Not{Child: rule.Or{rule.CandleShape{Shape: rule.ShapeGreen}, inner}}.Eval(suite.frame, 3))
}

func (suite *RuleTestSuite) TestCompileErrors() {
	threshold := func(column string, shift int, op string) *rule.ThresholdNode {
		return &rule.ThresholdNode{OperandNode: rule.OperandNode{Column: column, Shift: shift}, Op: op, Value: 1}
	}

	testCases := []struct {
		name  string
		node  rule.Node
		code  errors.ErrorCode
		field string
	}{
		{"empty node", rule.Node{}, errors.ErrCodeInvalidRule, "rule"},
		{"two kinds", rule.Node{Threshold: threshold("close", 0, ">"), Shape: &rule.ShapeNode{Candle: "green"}}, errors.ErrCodeInvalidRule, "rule"},
		{"empty all", rule.Node{All: []rule.Node{}}, errors.ErrCodeInvalidRule, "rule.all"},
		{"unknown operator", rule.Node{Threshold: threshold("close", 0, "=>")}, errors.ErrCodeInvalidRule, "rule.threshold.op"},
		{"shift too far", rule.Node{Threshold: threshold("close", rule.MaxShift+1, ">")}, errors.ErrCodeInvalidRule, "rule.threshold.shift"},
		{"negative shift", rule.Node{Threshold: threshold("close", -1, ">")}, errors.ErrCodeInvalidRule, "rule.threshold.shift"},
		{"missing column", rule.Node{Threshold: threshold("", 0, ">")}, errors.ErrCodeInvalidRule, "rule.threshold.column"},
		{
			"unknown column nested",
			rule.Node{Any: []rule.Node{{Threshold: threshold("close", 0, ">")}, {Not: &rule.Node{Threshold: threshold("rsi", 0, ">")}}}},
			errors.ErrCodeUnknownColumn,
			"rule.any[1].not.threshold.column",
		},
		{
			"bad direction",
			rule.Node{Cross: &rule.CrossNode{Left: rule.OperandNode{Column: "close"}, Right: rule.OperandNode{Column: "sma2"}, Direction: "sideways"}},
			errors.ErrCodeInvalidRule,
			"rule.cross.direction",
		},
		{"bad shape", rule.Node{Shape: &rule.ShapeNode{Candle: "doji"}}, errors.ErrCodeInvalidRule, "rule.shape.candle"},
		{"unknown model", rule.Node{Score: &rule.ScoreNode{Model: "fisher", Op: ">"}}, errors.ErrCodeUnknownScorer, "rule.score.model"},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			_, err := rule.Compile(tc.node, rule.CompileOptions{Columns: []string{"sma2"}})
			suite.Require().Error(err)
			suite.True(errors.IsConfigurationError(err))
			suite.True(errors.HasCode(err, tc.code), err.Error())

			var e *errors.Error
			suite.Require().True(errors.As(err, &e))
			suite.Equal(tc.field, e.Field)
		})
	}
}

func (suite *RuleTestSuite) TestValidate() {
	p := rule.And{
		rule.Threshold{Left: rule.Operand{Column: "rsi"}, Op: rule.GreaterThan, Value: 50},
		rule.RelativeCompare{Left: rule.Operand{Column: "close"}, Op: rule.GreaterThan, Right: rule.Operand{Column: "ema"}},
	}

	suite.NoError(rule.Validate(p, []string{"rsi", "ema"}))

	err := rule.Validate(p, []string{"rsi"})
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownColumn))
	suite.Contains(err.Error(), "ema")
}

func (suite *RuleTestSuite) TestRuleSet() {
	entry := rule.Node{Shape: &rule.ShapeNode{Candle: "green"}}
	exit := rule.Node{Cross: &rule.CrossNode{
		Left:      rule.OperandNode{Column: "close"},
		Direction: "below",
		Right:     rule.OperandNode{Column: "sma2"},
	}}

	rules, err := rule.CompileRuleSet("test", entry, exit, rule.CompileOptions{Columns: []string{"sma2"}})
	suite.Require().NoError(err)
	suite.Equal(1, rules.Lookback())

	signals := rules.Evaluate(suite.frame, 2)
	suite.Equal([]bool{false, false, true, false, false, true, true}, signals.Enter)
	suite.Equal([]bool{false, false, false, true, false, false, false}, signals.Exit)

	enter, exitFlag := rules.EvaluateAt(suite.frame, 1)
	suite.True(enter)
	suite.False(exitFlag)
}

func (suite *RuleTestSuite) TestRuleSetWithoutExit() {
	rules, err := rule.CompileRuleSet("entry only", rule.Node{Shape: &rule.ShapeNode{Candle: "red"}}, rule.Node{}, rule.CompileOptions{})
	suite.Require().NoError(err)
	suite.Nil(rules.Exit)

	signals := rules.Evaluate(suite.frame, 0)
	suite.Equal([]bool{false, false, false, true, true, false, false}, signals.Enter)
	suite.NotContains(signals.Exit, true)

	_, err = rule.CompileRuleSet("broken", rule.Node{}, rule.Node{}, rule.CompileOptions{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidRule))

	var e *errors.Error
	suite.Require().True(errors.As(err, &e))
	suite.Equal("entry", e.Field)
}
