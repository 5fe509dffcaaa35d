package models

import "time"

// Attribute is a single trait attached to a listing.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Listing is an item currently offered for sale on the marketplace. Listings
// are built from raw API records, evaluated once and then only remembered by
// id in the seen set.
type Listing struct {
	ID           string
	CollectionID string
	Name         string
	Rank         int // 0 when the marketplace did not assign one
	ImageURL     string
	Price        Money
	Attributes   []Attribute
	Model        string
}

// Collection is a watched marketplace collection. Loaded once at startup and
// read-only afterwards.
type Collection struct {
	ID        string
	Name      string
	ShortName string   // API-facing slug
	Models    []string // model classifiers to watch
}

// IsTargetModel reports whether the given model is on this collection's
// watch list.
func (c Collection) IsTargetModel(model string) bool {
	for _, m := range c.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Opportunity is a listing the active strategy accepted, annotated with the
// projected profit and the machine-parseable reason that drove the decision.
// It lives for one cycle only.
type Opportunity struct {
	Listing Listing
	Profit  Money
	Reason  string
}

// BalanceSnapshot is the last known account balance. It is refreshed on a
// minimum interval rather than every cycle, so it is stale between refreshes
// by design.
type BalanceSnapshot struct {
	Amount    Money
	FetchedAt time.Time
}

// StaleAfter reports whether the snapshot is older than maxAge.
func (b BalanceSnapshot) StaleAfter(maxAge time.Duration) bool {
	return time.Since(b.FetchedAt) > maxAge
}

// CollectionStats is a 24h analytics snapshot for one collection. Used for
// observability only, never for buy decisions.
type CollectionStats struct {
	Volume24h   float64
	Sales24h    float64
	FloorPrice  float64
	ItemsCount  float64
	OwnersCount float64
}

// SnipeRecord is one purchase-attempt outcome for the audit trail.
type SnipeRecord struct {
	AttemptID  string
	ListingID  string
	Collection string
	Model      string
	Price      float64
	Profit     float64
	Reason     string
	Outcome    string
	Timestamp  time.Time
}
