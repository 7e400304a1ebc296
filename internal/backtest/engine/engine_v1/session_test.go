package engine

import (
	"context"

	argoErrors "github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

func (suite *BacktestEngineV1TestSuite) TestSessionMatchesBatch() {
	e := suite.newEngine(EmptyConfig())

	batch, err := e.Run(context.Background(), suite.series("BTC"))
	suite.Require().NoError(err)

	session, err := e.NewSession("BTC")
	suite.Require().NoError(err)

	var actions []types.Action

	for _, c := range scriptedCandles() {
		out, err := session.Update(c, true)
		suite.Require().NoError(err)

		actions = append(actions, out...)
	}

	suite.Equal(actionKeys(batch.Actions), actionKeys(actions))
	suite.Len(session.Trades(), len(batch.Trades))
	suite.Require().NotNil(session.Position())
	suite.Equal(98.0, session.Position().EntryPrice)
}

func (suite *BacktestEngineV1TestSuite) TestSessionPartialCandles() {
	session, err := suite.newEngine(EmptyConfig()).NewSession("BTC")
	suite.Require().NoError(err)

	// rules wait for the candle to close
	out, err := session.Update(candle(0, 100, 1000), false)
	suite.Require().NoError(err)
	suite.Empty(out)
	suite.Nil(session.Position())

	out, err = session.Update(candle(0, 100, 1000), true)
	suite.Require().NoError(err)
	suite.Require().Len(out, 1)
	suite.Equal(types.ActionTypeEnter, out[0].Type)

	// an in-progress drop still hits the stop-loss
	out, err = session.Update(candle(1, 96, 100), false)
	suite.Require().NoError(err)
	suite.Require().Len(out, 1)
	suite.Equal(types.ExitReasonStopLoss, out[0].Reason)
	suite.Nil(session.Position())

	// no re-entry on the candle that closed the position
	out, err = session.Update(candle(1, 100, 1000), true)
	suite.Require().NoError(err)
	suite.Empty(out)

	out, err = session.Update(candle(2, 100, 1000), true)
	suite.Require().NoError(err)
	suite.Require().Len(out, 1)
	suite.Equal(types.ActionTypeEnter, out[0].Type)
	suite.Equal(2, out[0].Index)

	suite.Len(session.Trades(), 1)
}

func (suite *BacktestEngineV1TestSuite) TestSessionErrors() {
	session, err := suite.newEngine(EmptyConfig()).NewSession("BTC")
	suite.Require().NoError(err)

	_, err = session.Update(candle(1, 100, 100), true)
	suite.Require().NoError(err)

	_, err = session.Update(candle(1, 101, 100), true)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeNonMonotonicTime))

	_, err = session.Update(candle(0, 100, 100), true)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeNonMonotonicTime))

	_, err = session.Update(candle(2, 100, 100), false)
	suite.Require().NoError(err)

	_, err = session.Update(candle(3, 100, 100), true)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeNonMonotonicTime))

	bad := candle(2, 100, 100)
	bad.High = 90

	_, err = session.Update(bad, true)
	suite.True(argoErrors.IsDataError(err))
}

func (suite *BacktestEngineV1TestSuite) TestSessionPositionIsCopy() {
	session, err := suite.newEngine(EmptyConfig()).NewSession("BTC")
	suite.Require().NoError(err)

	_, err = session.Update(candle(0, 100, 1000), true)
	suite.Require().NoError(err)

	position := session.Position()
	suite.Require().NotNil(position)
	position.EntryPrice = 1

	suite.Equal(100.0, session.Position().EntryPrice)
}
