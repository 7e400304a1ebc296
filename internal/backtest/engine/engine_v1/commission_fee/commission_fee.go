package commission_fee

import "github.com/shopspring/decimal"

type CommissionFee interface {
	// Calculate returns the fee, in quote currency, of filling quantity units at price.
	Calculate(quantity, price decimal.Decimal) decimal.Decimal
}

type Broker string

const (
	BrokerInteractiveBroker Broker = "interactive_broker"
	BrokerZero              Broker = "zero_commission"
	// BrokerPercentage charges a fraction of the traded notional, as crypto exchanges do.
	BrokerPercentage Broker = "percentage"
)

var AllBrokers = []any{
	BrokerInteractiveBroker,
	BrokerZero,
	BrokerPercentage,
}

// DefaultPercentageRate is the taker fee used when a percentage broker has no rate configured.
const DefaultPercentageRate = 0.001

// GetCommissionFeeHandler returns the fee model of broker. rate only applies to BrokerPercentage.
func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	switch broker {
	case BrokerInteractiveBroker:
		return NewInteractiveBrokerCommissionFee()
	case BrokerPercentage:
		if rate <= 0 {
			rate = DefaultPercentageRate
		}

		return NewPercentageCommissionFee(rate)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
