// Package executor turns the cycle's ranked opportunities into actual
// purchase requests, bounded by a concurrency cap.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"giftsniper/logger"
	"giftsniper/market"
	"giftsniper/models"
)

// AccountClient places purchase orders.
type AccountClient interface {
	Buy(ctx context.Context, listingID string, price models.Money) error
}

// Notifier receives purchase outcomes.
type Notifier interface {
	NotifyBuy(listing models.Listing, price, profit models.Money)
	NotifyError(message string, err error)
}

// Refresher rotates an expired marketplace credential in the background.
type Refresher interface {
	RefreshAsync()
}

// Auditor accepts purchase-attempt records for durable storage. Enqueue
// must never block; it reports false when the record was dropped.
type Auditor interface {
	Enqueue(record models.SnipeRecord) bool
}

// Executor fires purchase attempts for a batch of opportunities in parallel,
// capped by a semaphore. Each attempt is logged, notified and audited
// regardless of outcome. In dry-run mode no request leaves the process.
type Executor struct {
	account  AccountClient
	notifier Notifier
	refresh  Refresher
	auditor  Auditor

	dryRun     bool
	concurrent int

	attempts  int64
	successes int64

	log *logger.Entry
}

// Options tune the executor beyond its collaborators.
type Options struct {
	DryRun     bool
	Concurrent int // max in-flight purchases, minimum 1
}

// New creates an executor. The refresher and auditor are optional.
func New(account AccountClient, notifier Notifier, refresh Refresher, auditor Auditor, opts Options) *Executor {
	if opts.Concurrent <= 0 {
		opts.Concurrent = 5
	}
	return &Executor{
		account:    account,
		notifier:   notifier,
		refresh:    refresh,
		auditor:    auditor,
		dryRun:     opts.DryRun,
		concurrent: opts.Concurrent,
		log:        logger.GetLogger().WithComponent("executor"),
	}
}

// ExecuteBatch fires all opportunities in parallel and returns once every
// attempt has settled. Opportunities arrive pre-ranked; the batch is small
// enough that all of them race the market at once.
func (e *Executor) ExecuteBatch(ctx context.Context, batch []models.Opportunity) {
	if len(batch) == 0 {
		return
	}

	sem := make(chan struct{}, e.concurrent)
	var wg sync.WaitGroup

	for _, op := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(op models.Opportunity) {
			defer wg.Done()
			defer func() { <-sem }()
			e.buy(ctx, op)
		}(op)
	}

	wg.Wait()
	e.log.LogMetric("batch_size", len(batch), nil)
}

func (e *Executor) buy(ctx context.Context, op models.Opportunity) {
	atomic.AddInt64(&e.attempts, 1)
	logger.IncrementBuyAttempt()

	log := e.log.WithFields(logger.Fields{
		"listing_id": op.Listing.ID,
		"name":       op.Listing.Name,
		"model":      op.Listing.Model,
		"price":      op.Listing.Price.String(),
		"profit":     op.Profit.String(),
		"reason":     op.Reason,
	})

	outcome := "success"
	var err error
	if e.dryRun {
		log.Info("dry run, skipping purchase request")
		outcome = "dry_run"
	} else {
		err = e.account.Buy(ctx, op.Listing.ID, op.Listing.Price)
	}

	switch {
	case err == nil:
		atomic.AddInt64(&e.successes, 1)
		logger.IncrementBuySuccess()
		e.notifier.NotifyBuy(op.Listing, op.Listing.Price, op.Profit)
		log.WithFields(logger.Fields{"success_rate": e.SuccessRate()}).Info("snipe succeeded")
	case errors.Is(err, market.ErrAuthExpired):
		outcome = "auth_expired"
		log.Warn("purchase rejected, token expired")
		e.notifier.NotifyError("purchase rejected for "+op.Listing.Name+", token expired", err)
		if e.refresh != nil {
			e.refresh.RefreshAsync()
		}
	default:
		outcome = "failed"
		log.WithError(err).Warn("snipe failed")
		e.notifier.NotifyError("purchase failed: "+op.Listing.Name, err)
	}

	e.audit(op, outcome)
}

func (e *Executor) audit(op models.Opportunity, outcome string) {
	if e.auditor == nil {
		return
	}
	price, _ := op.Listing.Price.Amount.Float64()
	profit, _ := op.Profit.Amount.Float64()
	record := models.SnipeRecord{
		AttemptID:  uuid.New().String(),
		ListingID:  op.Listing.ID,
		Collection: op.Listing.CollectionID,
		Model:      op.Listing.Model,
		Price:      price,
		Profit:     profit,
		Reason:     op.Reason,
		Outcome:    outcome,
		Timestamp:  time.Now().UTC(),
	}
	if !e.auditor.Enqueue(record) {
		e.log.WithFields(logger.Fields{"listing_id": op.Listing.ID}).Warn("audit buffer full, record dropped")
	}
}

// Attempts returns the number of purchase attempts since start.
func (e *Executor) Attempts() int64 { return atomic.LoadInt64(&e.attempts) }

// Successes returns the number of successful purchases since start.
func (e *Executor) Successes() int64 { return atomic.LoadInt64(&e.successes) }

// SuccessRate renders successes over attempts for logging.
func (e *Executor) SuccessRate() string {
	return fmt.Sprintf("%d/%d", atomic.LoadInt64(&e.successes), atomic.LoadInt64(&e.attempts))
}
