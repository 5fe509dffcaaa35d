package monitor

import (
	"context"

	"giftsniper/logger"
	"giftsniper/models"
	"giftsniper/snipe"
	"giftsniper/strategy"
)

// Worker evaluates one collection per cycle: cached floors, fresh listings,
// strategy screening. Workers share the floor cache and seen set; each cycle
// runs one worker per watched collection.
type Worker struct {
	market   MarketClient
	floors   *snipe.FloorCache
	seen     *snipe.SeenSet
	strategy strategy.Strategy
	calc     snipe.ProfitCalculator
	limit    int
	log      *logger.Entry
}

// NewWorker creates a collection worker.
func NewWorker(market MarketClient, floors *snipe.FloorCache, seen *snipe.SeenSet, strat strategy.Strategy, calc snipe.ProfitCalculator, limit int) *Worker {
	return &Worker{
		market:   market,
		floors:   floors,
		seen:     seen,
		strategy: strat,
		calc:     calc,
		limit:    limit,
		log:      logger.GetLogger().WithComponent("worker"),
	}
}

// Process screens one collection and returns the opportunities the strategy
// accepted, in listing order. Fetch failures yield an empty result so one
// collection outage never aborts the cycle.
func (w *Worker) Process(ctx context.Context, collection models.Collection, balance models.Money) []models.Opportunity {
	log := w.log.WithFields(logger.Fields{"collection": collection.ShortName})

	floors := w.floors.Get(ctx, collection)

	raw, err := w.market.FetchListings(ctx, []models.Collection{collection}, w.limit)
	if err != nil {
		log.WithError(err).Warn("listings fetch failed")
		return nil
	}
	logger.IncrementListingsRead(len(raw))

	var opportunities []models.Opportunity
	for _, record := range raw {
		listing, err := record.Listing()
		if err != nil {
			log.WithError(err).Warn("skipping malformed listing")
			continue
		}
		if w.seen.Seen(listing.ID) {
			continue
		}

		floorVal, ok := floors[listing.Model]
		if !ok {
			continue
		}
		floor := models.MoneyFromFloat(floorVal)

		accepted, reason := w.strategy.ShouldBuy(ctx, listing, floor, balance, collection)
		if !accepted {
			continue
		}

		profit := w.calc.NetProfit(listing.Price, floor)
		opportunities = append(opportunities, models.Opportunity{
			Listing: listing,
			Profit:  profit,
			Reason:  reason,
		})
		w.seen.MarkSeen(listing.ID)
		logger.IncrementOpportunity()

		log.WithFields(logger.Fields{
			"listing_id": listing.ID,
			"name":       listing.Name,
			"model":      listing.Model,
			"price":      listing.Price.String(),
			"profit":     profit.String(),
			"reason":     reason,
		}).Info("opportunity found")
	}

	return opportunities
}
