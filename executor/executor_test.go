package executor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"giftsniper/market"
	"giftsniper/models"
)

type fakeAccount struct {
	mu     sync.Mutex
	bought []string
	err    error
}

func (f *fakeAccount) Buy(ctx context.Context, listingID string, price models.Money) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bought = append(f.bought, listingID)
	return f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	buys   []string
	errors []string
}

func (f *fakeNotifier) NotifyBuy(listing models.Listing, price, profit models.Money) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buys = append(f.buys, listing.ID)
}

func (f *fakeNotifier) NotifyError(message string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, message)
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRefresher) RefreshAsync() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

type fakeAuditor struct {
	mu      sync.Mutex
	records []models.SnipeRecord
	full    bool
}

func (f *fakeAuditor) Enqueue(record models.SnipeRecord) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.records = append(f.records, record)
	return true
}

func opportunity(id, price, profit string) models.Opportunity {
	p, _ := models.MoneyFromString(price)
	pr, _ := models.MoneyFromString(profit)
	return models.Opportunity{
		Listing: models.Listing{ID: id, CollectionID: "c1", Name: id, Model: "Golden", Price: p},
		Profit:  pr,
		Reason:  "profit_" + profit,
	}
}

func TestExecuteBatchBuysEverything(t *testing.T) {
	account := &fakeAccount{}
	notif := &fakeNotifier{}
	auditor := &fakeAuditor{}
	e := New(account, notif, nil, auditor, Options{Concurrent: 2})

	batch := []models.Opportunity{
		opportunity("nft-1", "10", "2"),
		opportunity("nft-2", "12", "1.5"),
		opportunity("nft-3", "8", "1"),
	}
	e.ExecuteBatch(context.Background(), batch)

	if len(account.bought) != 3 {
		t.Fatalf("bought %d listings, want 3", len(account.bought))
	}
	if len(notif.buys) != 3 {
		t.Errorf("notified %d buys, want 3", len(notif.buys))
	}
	if got := e.SuccessRate(); got != "3/3" {
		t.Errorf("success rate = %q, want 3/3", got)
	}
	if len(auditor.records) != 3 {
		t.Fatalf("audited %d records, want 3", len(auditor.records))
	}
	for _, rec := range auditor.records {
		if rec.Outcome != "success" {
			t.Errorf("outcome = %q, want success", rec.Outcome)
		}
		if rec.AttemptID == "" {
			t.Error("attempt id missing")
		}
	}
}

func TestDryRunSkipsAccount(t *testing.T) {
	account := &fakeAccount{}
	notif := &fakeNotifier{}
	auditor := &fakeAuditor{}
	e := New(account, notif, nil, auditor, Options{DryRun: true})

	e.ExecuteBatch(context.Background(), []models.Opportunity{opportunity("nft-1", "10", "2")})

	if len(account.bought) != 0 {
		t.Errorf("dry run hit the account client %d times", len(account.bought))
	}
	if len(notif.buys) != 1 {
		t.Errorf("dry run sent %d buy notifications, want 1", len(notif.buys))
	}
	if len(auditor.records) != 1 || auditor.records[0].Outcome != "dry_run" {
		t.Errorf("audit records = %+v, want one dry_run", auditor.records)
	}
	if got := e.SuccessRate(); got != "1/1" {
		t.Errorf("success rate = %q, want 1/1", got)
	}
}

func TestAuthExpiredSchedulesRefresh(t *testing.T) {
	account := &fakeAccount{err: market.ErrAuthExpired}
	notif := &fakeNotifier{}
	refresher := &fakeRefresher{}
	auditor := &fakeAuditor{}
	e := New(account, notif, refresher, auditor, Options{})

	e.ExecuteBatch(context.Background(), []models.Opportunity{opportunity("nft-1", "10", "2")})

	if refresher.calls != 1 {
		t.Errorf("refresh scheduled %d times, want 1", refresher.calls)
	}
	if len(notif.errors) != 1 {
		t.Errorf("auth expiry notifications = %v, want 1", notif.errors)
	}
	if len(notif.buys) != 0 {
		t.Errorf("auth expiry sent %d buy notifications", len(notif.buys))
	}
	if auditor.records[0].Outcome != "auth_expired" {
		t.Errorf("outcome = %q, want auth_expired", auditor.records[0].Outcome)
	}
	if got := e.SuccessRate(); got != "0/1" {
		t.Errorf("success rate = %q, want 0/1", got)
	}
}

func TestBuyFailureNotifiesAndAudits(t *testing.T) {
	account := &fakeAccount{err: errors.New("already sold")}
	notif := &fakeNotifier{}
	auditor := &fakeAuditor{}
	e := New(account, notif, nil, auditor, Options{})

	e.ExecuteBatch(context.Background(), []models.Opportunity{opportunity("nft-1", "10", "2")})

	if len(notif.errors) != 1 {
		t.Errorf("error notifications = %v, want 1", notif.errors)
	}
	if auditor.records[0].Outcome != "failed" {
		t.Errorf("outcome = %q, want failed", auditor.records[0].Outcome)
	}
}

func TestFullAuditorDoesNotBlockBuys(t *testing.T) {
	account := &fakeAccount{}
	e := New(account, &fakeNotifier{}, nil, &fakeAuditor{full: true}, Options{})

	e.ExecuteBatch(context.Background(), []models.Opportunity{opportunity("nft-1", "10", "2")})

	if len(account.bought) != 1 {
		t.Errorf("bought %d, want 1 despite a full audit buffer", len(account.bought))
	}
}

func TestEmptyBatchIsNoop(t *testing.T) {
	e := New(&fakeAccount{}, &fakeNotifier{}, nil, nil, Options{})
	e.ExecuteBatch(context.Background(), nil)
	if got := e.SuccessRate(); got != "0/0" {
		t.Errorf("success rate = %q, want 0/0", got)
	}
}
