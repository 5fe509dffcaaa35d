// Package strategy decides whether a listing is worth buying. Two variants
// exist: a basic balance+profit check and an analytics-informed strategy that
// layers liquidity and trending tiers on top of it.
package strategy

import (
	"context"

	"giftsniper/models"
)

// Strategy is the buy/no-buy decision for one listing. The returned reason is
// a machine-parseable code embedding the numeric signal that drove the
// decision, e.g. "low_velocity_2_sales" or "trending_good_discount_6.1%_vel_4".
type Strategy interface {
	ShouldBuy(ctx context.Context, listing models.Listing, floor, balance models.Money, collection models.Collection) (bool, string)
}
