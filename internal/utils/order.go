package utils

import (
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-signal/internal/backtest/engine/engine_v1/commission_fee"
)

const (
	maxQuantityIterations = 10
	// QuantityPrecision is the number of decimal places quantities are floored to.
	QuantityPrecision = 8
)

// CalculateMaxQuantity returns the largest quantity, floored to QuantityPrecision places,
// whose notional plus entry fee fits in stake.
func CalculateMaxQuantity(stake, price decimal.Decimal, commissionFee commission_fee.CommissionFee) decimal.Decimal {
	if !price.IsPositive() || !stake.IsPositive() {
		return decimal.Zero
	}

	maxQty := stake.Div(price)

	// fees grow with quantity, so scale down until the total fits
	for i := 0; i < maxQuantityIterations; i++ {
		totalCost := maxQty.Mul(price).Add(commissionFee.Calculate(maxQty, price))
		if totalCost.LessThanOrEqual(stake) {
			break
		}

		maxQty = maxQty.Mul(stake).Div(totalCost)
	}

	return maxQty.RoundFloor(QuantityPrecision)
}
