package commission_fee

import "github.com/shopspring/decimal"

var (
	ibPerShare = decimal.RequireFromString("0.005")
	ibMinimum  = decimal.NewFromInt(1)
)

type InteractiveBrokerCommissionFee struct {
}

func NewInteractiveBrokerCommissionFee() CommissionFee {
	return &InteractiveBrokerCommissionFee{}
}

// Calculate charges 0.005 per unit with a minimum of 1 per fill.
func (c *InteractiveBrokerCommissionFee) Calculate(quantity, _ decimal.Decimal) decimal.Decimal {
	fee := ibPerShare.Mul(quantity.Abs())
	if fee.LessThan(ibMinimum) {
		return ibMinimum
	}

	return fee
}
