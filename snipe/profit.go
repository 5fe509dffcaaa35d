package snipe

import (
	"github.com/shopspring/decimal"

	"giftsniper/models"
)

// ProfitCalculator computes the net expected profit of flipping a listing at
// the floor price after the marketplace takes its fee. All math is exact
// decimal arithmetic.
type ProfitCalculator struct {
	fee decimal.Decimal
}

// NewProfitCalculator creates a calculator for the given fee rate, a
// dimensionless fraction in [0,1).
func NewProfitCalculator(feeRate float64) ProfitCalculator {
	return ProfitCalculator{fee: decimal.NewFromFloat(feeRate)}
}

// NetProfit returns floor*(1-fee) - buyPrice. Both prices must share a
// currency; a mismatch panics since it indicates a mapping bug.
func (c ProfitCalculator) NetProfit(buyPrice, floorPrice models.Money) models.Money {
	sellAfterFee := floorPrice.MulRate(decimal.NewFromInt(1).Sub(c.fee))
	return sellAfterFee.Sub(buyPrice)
}
