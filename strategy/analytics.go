package strategy

import (
	"context"
	"fmt"
	"sync"

	"giftsniper/logger"
	"giftsniper/models"
	"giftsniper/snipe"
)

// AnalyticsClient provides live market telemetry. Satisfied by the analytics
// adapter; faked in tests.
type AnalyticsClient interface {
	// CollectionID resolves the analytics handle for a collection slug.
	// Returns an empty id without error when the collection is unknown.
	CollectionID(ctx context.Context, shortName string) (string, error)
	// ModelVelocity counts completed sales for one model within the
	// trailing window.
	ModelVelocity(ctx context.Context, collectionID, model string, hours int) (int, error)
	// IsTrending reports whether the collection's 24h sales exceed the
	// prior 24h window by at least the threshold ratio.
	IsTrending(ctx context.Context, collectionID string, threshold float64) (bool, error)
}

// AnalyticsConfig are the tier thresholds of the analytics strategy.
type AnalyticsConfig struct {
	MinVelocity       int     // minimum 24h sales for a model to be liquid
	HighVelocity      int     // sales count marking the high-liquidity regime
	TrendingThreshold float64 // 24h/prior-24h sales ratio marking a trending collection
	TrendingDiscount  float64 // minimum discount %% when trending
	HighDiscount      float64 // minimum discount %% in the high-liquidity regime
	ModerateDiscount  float64 // minimum discount %% otherwise
}

// AnalyticsStrategy screens listings with liquidity and trend telemetry
// before accepting. Any analytics failure falls back to the basic profit
// floor rather than blocking the cycle: a telemetry outage must never stall
// sniping, at the cost of skipping liquidity screening for those buys.
type AnalyticsStrategy struct {
	analytics AnalyticsClient
	minProfit models.Money
	calc      snipe.ProfitCalculator
	cfg       AnalyticsConfig

	mu      sync.Mutex
	handles map[string]string // collection slug -> analytics id

	log *logger.Log
}

// NewAnalyticsStrategy creates the analytics strategy.
func NewAnalyticsStrategy(analytics AnalyticsClient, minProfit models.Money, calc snipe.ProfitCalculator, cfg AnalyticsConfig) *AnalyticsStrategy {
	return &AnalyticsStrategy{
		analytics: analytics,
		minProfit: minProfit,
		calc:      calc,
		cfg:       cfg,
		handles:   make(map[string]string),
		log:       logger.GetLogger(),
	}
}

func (s *AnalyticsStrategy) collectionID(ctx context.Context, shortName string) (string, error) {
	s.mu.Lock()
	id, ok := s.handles[shortName]
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	id, err := s.analytics.CollectionID(ctx, shortName)
	if err != nil {
		return "", err
	}
	if id != "" {
		s.mu.Lock()
		s.handles[shortName] = id
		s.mu.Unlock()
	}
	return id, nil
}

// ShouldBuy evaluates, in order: balance, floor sanity, profit floor,
// analytics handle, model velocity, then the tiered discount by market regime.
func (s *AnalyticsStrategy) ShouldBuy(ctx context.Context, listing models.Listing, floor, balance models.Money, collection models.Collection) (bool, string) {
	if !balance.GreaterThan(listing.Price) {
		return false, "insufficient_balance"
	}

	// A zero floor carries no price signal and would break the discount ratio.
	if !floor.IsPositive() {
		return false, "no_floor_price"
	}

	profit := s.calc.NetProfit(listing.Price, floor)
	if profit.LessThan(s.minProfit) {
		return false, fmt.Sprintf("low_profit_%s", profit.Amount.StringFixed(2))
	}

	log := s.log.WithComponent("analytics_strategy").WithFields(logger.Fields{
		"collection": collection.ShortName,
		"model":      listing.Model,
	})

	id, err := s.collectionID(ctx, collection.ShortName)
	if err != nil {
		log.WithError(err).Warn("analytics failed, falling back to basic profit")
		return true, fmt.Sprintf("analytics_error_fallback_profit_%s", profit.Amount.StringFixed(2))
	}
	if id == "" {
		// No analytics coverage is non-blocking
		log.Warn("no analytics handle for collection")
		return true, fmt.Sprintf("no_analytics_profit_%s", profit.Amount.StringFixed(2))
	}

	velocity, err := s.analytics.ModelVelocity(ctx, id, listing.Model, 24)
	if err != nil {
		log.WithError(err).Warn("analytics failed, falling back to basic profit")
		return true, fmt.Sprintf("analytics_error_fallback_profit_%s", profit.Amount.StringFixed(2))
	}
	if velocity < s.cfg.MinVelocity {
		return false, fmt.Sprintf("low_velocity_%d_sales", velocity)
	}

	trending, err := s.analytics.IsTrending(ctx, id, s.cfg.TrendingThreshold)
	if err != nil {
		log.WithError(err).Warn("analytics failed, falling back to basic profit")
		return true, fmt.Sprintf("analytics_error_fallback_profit_%s", profit.Amount.StringFixed(2))
	}

	discountPct := profit.Ratio(floor) * 100

	switch {
	case trending:
		if discountPct >= s.cfg.TrendingDiscount {
			return true, fmt.Sprintf("trending_good_discount_%.1f%%_vel_%d", discountPct, velocity)
		}
		return false, fmt.Sprintf("trending_but_small_discount_%.1f%%", discountPct)
	case velocity >= s.cfg.HighVelocity:
		if discountPct >= s.cfg.HighDiscount {
			return true, fmt.Sprintf("high_velocity_%d_discount_%.1f%%", velocity, discountPct)
		}
		return false, fmt.Sprintf("high_velocity_but_small_discount_%.1f%%", discountPct)
	default:
		if discountPct >= s.cfg.ModerateDiscount {
			return true, fmt.Sprintf("moderate_velocity_%d_discount_%.1f%%", velocity, discountPct)
		}
		return false, fmt.Sprintf("moderate_velocity_small_discount_%.1f%%", discountPct)
	}
}
