// Package monitor runs the scan loop: every cycle it screens all watched
// collections in parallel, ranks the accepted opportunities by projected
// profit and hands the top of the ranking to the executor.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"giftsniper/config"
	"giftsniper/logger"
	"giftsniper/models"
	"giftsniper/snipe"
	"giftsniper/strategy"
)

// MarketClient reads listings from the marketplace.
type MarketClient interface {
	FetchListings(ctx context.Context, collections []models.Collection, limit int) ([]models.RawListing, error)
}

// AccountClient reads the wallet balance.
type AccountClient interface {
	Balance(ctx context.Context) (models.Money, error)
}

// Notifier receives cycle-level failures.
type Notifier interface {
	NotifyError(message string, err error)
}

// Executor fires the ranked purchase batch.
type Executor interface {
	ExecuteBatch(ctx context.Context, batch []models.Opportunity)
}

// StatsClient serves the periodic market overview. Optional.
type StatsClient interface {
	CollectionsStats(ctx context.Context) (map[string]models.CollectionStats, error)
}

// Monitor owns the scan loop state: the balance snapshot, the seen set, the
// floor cache and the cycle counter. Cycles run strictly one after another;
// parallelism lives inside a cycle, never across cycles.
type Monitor struct {
	collections []models.Collection
	worker      *Worker
	account     AccountClient
	executor    Executor
	notifier    Notifier
	stats       StatsClient
	seen        *snipe.SeenSet
	cfg         config.MonitorConfig

	balance    models.BalanceSnapshot
	cycleCount int

	log *logger.Entry
}

// New wires a monitor from its collaborators. The stats client is optional;
// without one the periodic market overview is skipped.
func New(
	collections []models.Collection,
	market MarketClient,
	account AccountClient,
	strat strategy.Strategy,
	executor Executor,
	notifier Notifier,
	stats StatsClient,
	floors *snipe.FloorCache,
	seen *snipe.SeenSet,
	calc snipe.ProfitCalculator,
	cfg config.MonitorConfig,
) *Monitor {
	return &Monitor{
		collections: collections,
		worker:      NewWorker(market, floors, seen, strat, calc, cfg.ListingLimit),
		account:     account,
		executor:    executor,
		notifier:    notifier,
		stats:       stats,
		seen:        seen,
		cfg:         cfg,
		balance:     models.BalanceSnapshot{Amount: models.MoneyFromFloat(0)},
		log:         logger.GetLogger().WithComponent("monitor"),
	}
}

// Run executes cycles until the context is cancelled, pausing for the scan
// delay between cycles.
func (m *Monitor) Run(ctx context.Context) {
	m.log.WithFields(logger.Fields{
		"collections": len(m.collections),
		"scan_delay":  m.cfg.ScanDelay.String(),
		"dry_run":     m.cfg.DryRun,
	}).Info("monitor started")

	for {
		select {
		case <-ctx.Done():
			m.log.Info("monitor stopped")
			return
		default:
		}

		m.RunCycle(ctx)

		select {
		case <-ctx.Done():
			m.log.Info("monitor stopped")
			return
		case <-time.After(m.cfg.ScanDelay):
		}
	}
}

// RunCycle executes one full scan: balance refresh, parallel collection
// screening, profit ranking and batch execution. A panic anywhere in the
// cycle is contained here so the loop survives.
func (m *Monitor) RunCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("cycle panic: %v", r)
			m.log.WithError(err).Error("cycle failed")
			m.notifier.NotifyError("cycle failed", err)
		}
	}()

	m.refreshBalance(ctx)

	opportunities := m.screenCollections(ctx)

	sort.Slice(opportunities, func(i, j int) bool {
		cmp := opportunities[i].Profit.Amount.Cmp(opportunities[j].Profit.Amount)
		if cmp != 0 {
			return cmp > 0
		}
		return opportunities[i].Listing.ID < opportunities[j].Listing.ID
	})

	if len(opportunities) > 0 {
		m.log.LogMetric("opportunities_per_cycle", len(opportunities), nil)
		batch := opportunities
		if len(batch) > m.cfg.BatchSize {
			batch = batch[:m.cfg.BatchSize]
		}
		m.executor.ExecuteBatch(ctx, batch)
	}

	m.seen.MaybeReset()

	m.cycleCount++
	logger.IncrementCycle()
	if m.stats != nil && m.cfg.AnalyticsEveryN > 0 && m.cycleCount%m.cfg.AnalyticsEveryN == 0 {
		m.logMarketOverview(ctx)
	}
}

// refreshBalance fetches the wallet balance when the snapshot is older than
// the configured max age. A fetch failure keeps the stale snapshot; skipping
// a cycle on stale funds beats blocking it.
func (m *Monitor) refreshBalance(ctx context.Context) {
	if !m.balance.StaleAfter(m.cfg.BalanceMaxAge) {
		return
	}
	amount, err := m.account.Balance(ctx)
	if err != nil {
		m.log.WithError(err).Warn("balance refresh failed, keeping previous snapshot")
		return
	}
	m.balance = models.BalanceSnapshot{Amount: amount, FetchedAt: time.Now()}
	m.log.WithFields(logger.Fields{"balance": amount.String()}).Debug("balance refreshed")
}

// screenCollections fans one worker goroutine out per collection and gathers
// their opportunities. A panicking worker forfeits its collection for this
// cycle only.
func (m *Monitor) screenCollections(ctx context.Context) []models.Opportunity {
	results := make([][]models.Opportunity, len(m.collections))
	var wg sync.WaitGroup

	for i, collection := range m.collections {
		wg.Add(1)
		go func(i int, collection models.Collection) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					m.log.WithFields(logger.Fields{
						"collection": collection.ShortName,
						"panic":      fmt.Sprintf("%v", r),
					}).Error("collection screening panicked")
				}
			}()
			results[i] = m.worker.Process(ctx, collection, m.balance.Amount)
		}(i, collection)
	}
	wg.Wait()

	var all []models.Opportunity
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// logMarketOverview logs a 24h analytics snapshot for the watched
// collections. Observability only, failures are logged and dropped.
func (m *Monitor) logMarketOverview(ctx context.Context) {
	stats, err := m.stats.CollectionsStats(ctx)
	if err != nil {
		m.log.WithError(err).Warn("market overview unavailable")
		return
	}
	for _, collection := range m.collections {
		s, ok := stats[strings.ToLower(collection.ShortName)]
		if !ok {
			continue
		}
		m.log.WithFields(logger.Fields{
			"collection": collection.ShortName,
			"sales_24h":  s.Sales24h,
			"volume_24h": s.Volume24h,
			"floor":      s.FloorPrice,
		}).Info("market overview")
	}
}
