package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// RawListing mirrors one marketplace listing record as returned by the
// listings endpoint. Price arrives as a JSON number or string depending on
// the endpoint version, hence json.Number.
type RawListing struct {
	Address    string      `json:"address"`
	Collection string      `json:"collection"`
	Name       string      `json:"name"`
	Rank       int         `json:"rank"`
	Image      string      `json:"image"`
	Price      json.Number `json:"price"`
	Attributes []Attribute `json:"attributes"`
	Model      string      `json:"model"`
}

// Listing converts the raw record into the domain entity. Records missing an
// id or carrying an unparseable or non-positive price are rejected so one
// malformed record never aborts a whole batch.
func (r RawListing) Listing() (Listing, error) {
	if r.Address == "" {
		return Listing{}, fmt.Errorf("raw listing has no address")
	}
	amount, err := decimal.NewFromString(r.Price.String())
	if err != nil {
		return Listing{}, fmt.Errorf("raw listing %s: bad price %q: %w", r.Address, r.Price, err)
	}
	if !amount.IsPositive() {
		return Listing{}, fmt.Errorf("raw listing %s: non-positive price %s", r.Address, amount)
	}
	model := r.Model
	if model == "" {
		model = "Unknown"
	}
	return Listing{
		ID:           r.Address,
		CollectionID: r.Collection,
		Name:         r.Name,
		Rank:         r.Rank,
		ImageURL:     r.Image,
		Price:        NewMoney(amount, DefaultCurrency),
		Attributes:   r.Attributes,
		Model:        model,
	}, nil
}

// ListingsResponse is the envelope of the listings endpoint.
type ListingsResponse struct {
	Results []RawListing `json:"results"`
}

// FloorFilterResponse is the envelope of the collection filters endpoint,
// carrying per-model floor prices and collection handles.
type FloorFilterResponse struct {
	FloorPrices map[string]FloorModels `json:"floor_prices"`
	Collections []RawCollectionHandle  `json:"collections"`
}

// FloorModels holds per-model floor prices for one collection. Prices may be
// null for models with no active listings.
type FloorModels struct {
	Models map[string]*float64 `json:"models"`
}

// RawCollectionHandle identifies a collection in the analytics API.
type RawCollectionHandle struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name"`
}

// WalletResponse is the account balance envelope.
type WalletResponse struct {
	Balance json.Number `json:"balance"`
}
