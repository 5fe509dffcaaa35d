package strategy

import (
	"context"
	"fmt"

	"giftsniper/models"
	"giftsniper/snipe"
)

// BasicStrategy buys when the balance covers the price and the net profit
// clears a fixed threshold. It is the fallback policy when analytics are
// unavailable.
type BasicStrategy struct {
	minProfit models.Money
	calc      snipe.ProfitCalculator
}

// NewBasicStrategy creates the basic strategy.
func NewBasicStrategy(minProfit models.Money, calc snipe.ProfitCalculator) *BasicStrategy {
	return &BasicStrategy{minProfit: minProfit, calc: calc}
}

// ShouldBuy accepts iff balance > price and netProfit >= minProfit.
func (s *BasicStrategy) ShouldBuy(ctx context.Context, listing models.Listing, floor, balance models.Money, collection models.Collection) (bool, string) {
	if !balance.GreaterThan(listing.Price) {
		return false, "insufficient_balance"
	}
	profit := s.calc.NetProfit(listing.Price, floor)
	if profit.LessThan(s.minProfit) {
		return false, fmt.Sprintf("low_profit_%s", profit.Amount.StringFixed(2))
	}
	return true, fmt.Sprintf("profit_%s", profit.Amount.StringFixed(2))
}
